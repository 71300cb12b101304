package service

import (
	"context"
	"fmt"
	"strings"

	"bomtrack/internal/apperror"
	"bomtrack/internal/model"
	"bomtrack/internal/repository"

	"github.com/google/uuid"
)

// AutocompleteItem is the select2-style {id, text} pair the UI binds to.
type AutocompleteItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type AutocompleteResponse struct {
	Results []AutocompleteItem `json:"results"`
	More    bool               `json:"more"`
}

type SearchService interface {
	// FinishedGoods returns finished-good assemblies matching q, optionally
	// scoped to one plant.
	FinishedGoods(ctx context.Context, q, plantID string, page, limit int) (AutocompleteResponse, error)
	// Components returns component-eligible assemblies (non finished goods)
	// matching q, optionally scoped to one plant.
	Components(ctx context.Context, q, plantID string, page, limit int) (AutocompleteResponse, error)
}

type searchService struct {
	assemblyRepo repository.AssemblyRepository
}

func NewSearchService(assemblyRepo repository.AssemblyRepository) SearchService {
	return &searchService{assemblyRepo: assemblyRepo}
}

func (s *searchService) FinishedGoods(ctx context.Context, q, plantID string, page, limit int) (AutocompleteResponse, error) {
	return s.search(ctx, q, plantID, true, page, limit)
}

func (s *searchService) Components(ctx context.Context, q, plantID string, page, limit int) (AutocompleteResponse, error) {
	return s.search(ctx, q, plantID, false, page, limit)
}

func (s *searchService) search(ctx context.Context, q, plantID string, finishedGood bool, page, limit int) (AutocompleteResponse, error) {
	var plant *uuid.UUID
	if plantID != "" {
		parsed, err := uuid.Parse(plantID)
		if err != nil {
			return AutocompleteResponse{}, apperror.Validation("plant_id", "invalid plant id: %v", err)
		}
		plant = &parsed
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	assemblies, more, err := s.assemblyRepo.Search(ctx, q, plant, finishedGood, page, limit)
	if err != nil {
		return AutocompleteResponse{}, fmt.Errorf("failed to search assemblies: %w", err)
	}

	resp := AutocompleteResponse{Results: make([]AutocompleteItem, 0, len(assemblies)), More: more}
	for i := range assemblies {
		resp.Results = append(resp.Results, AutocompleteItem{
			ID:   assemblies[i].ID.String(),
			Text: autocompleteText(&assemblies[i]),
		})
	}
	return resp, nil
}

// autocompleteText renders "code | name | shade | size" plus the plant code
// when loaded, so cross-plant searches stay unambiguous in the picker.
func autocompleteText(a *model.Assembly) string {
	parts := []string{a.Code, a.Name}
	if a.Product != nil {
		if a.Product.Shade != "" {
			parts = append(parts, a.Product.Shade)
		}
		if a.Product.Size != "" {
			parts = append(parts, a.Product.Size)
		}
	}
	if a.Plant != nil {
		parts = append(parts, a.Plant.Code)
	}
	return strings.Join(parts, " | ")
}
