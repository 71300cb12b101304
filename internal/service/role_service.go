package service

import (
	"context"
	"fmt"

	"bomtrack/internal/model"
	"bomtrack/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	txManager repository.TransactionManager
}

func NewRoleService(roleRepo repository.RoleRepository, txManager repository.TransactionManager) RoleService {
	return &roleService{roleRepo: roleRepo, txManager: txManager}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	permIDs, err := parsePermissionIDs(req.Permissions)
	if err != nil {
		return nil, err
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.roleRepo.Create(txCtx, &role); createErr != nil {
			return fmt.Errorf("failed to create role: %w", createErr)
		}
		if len(permIDs) > 0 {
			if assignErr := s.roleRepo.UpdatePermissions(txCtx, role.ID, permIDs); assignErr != nil {
				return fmt.Errorf("failed to assign permissions: %w", assignErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload with permissions
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	role.Name = req.Name
	role.Description = req.Description

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", err)
	}

	if role.IsSystem {
		return fmt.Errorf("cannot delete system role '%s'", role.Name)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Clear associations before deleting
		if clearErr := s.roleRepo.UpdatePermissions(txCtx, roleID, nil); clearErr != nil {
			return fmt.Errorf("failed to clear permissions: %w", clearErr)
		}
		if delErr := s.roleRepo.Delete(txCtx, roleID); delErr != nil {
			return fmt.Errorf("failed to delete role: %w", delErr)
		}
		return nil
	})
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	permIDs, err := parsePermissionIDs(req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	if _, err := s.roleRepo.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	if err := s.roleRepo.UpdatePermissions(ctx, id, permIDs); err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}

	return s.GetRole(ctx, roleID)
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	codes, err := s.roleRepo.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("role '%s' not found: %w", roleName, err)
	}
	return codes, nil
}

// SeedDefaultRolesAndPermissions creates the default permissions and roles if not already present
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	defaultPermissions := []model.Permission{
		{Code: "bom.read", Name: "View BOMs", Group: "bom"},
		{Code: "bom.write", Name: "Create and edit DRAFT BOMs", Group: "bom"},
		{Code: "bom.approve", Name: "Approve BOMs", Group: "bom"},
		{Code: "bom.activate", Name: "Activate BOMs", Group: "bom"},
		{Code: "masters.read", Name: "View master data", Group: "masters"},
		{Code: "masters.write", Name: "Manage master data", Group: "masters"},
		{Code: "seed.run", Name: "Run assembly seeding and backfill", Group: "seed"},
		{Code: "users.read", Name: "View users", Group: "users"},
		{Code: "users.write", Name: "Manage users", Group: "users"},
		{Code: "users.delete", Name: "Delete users", Group: "users"},
		{Code: "audit.read", Name: "View audit log", Group: "audit"},
		{Code: "roles.manage", Name: "Manage roles and permissions", Group: "roles"},
	}

	roleDefinitions := map[string]struct {
		Description string
		PermCodes   []string
	}{
		"admin": {
			Description: "Administrator with full system access",
			PermCodes: []string{
				"bom.read", "bom.write", "bom.approve", "bom.activate",
				"masters.read", "masters.write",
				"seed.run",
				"users.read", "users.write", "users.delete",
				"audit.read", "roles.manage",
			},
		},
		"manager": {
			Description: "Plant manager: approves and activates BOMs, runs seeding",
			PermCodes: []string{
				"bom.read", "bom.write", "bom.approve", "bom.activate",
				"masters.read", "masters.write",
				"seed.run",
				"users.read",
				"audit.read",
			},
		},
		"staff": {
			Description: "Planner: drafts BOMs and browses master data",
			PermCodes: []string{
				"bom.read", "bom.write",
				"masters.read",
				"audit.read",
			},
		},
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		permByCode := make(map[string]uuid.UUID, len(defaultPermissions))
		for i := range defaultPermissions {
			p := &defaultPermissions[i]
			if err := s.roleRepo.FindOrCreatePermission(txCtx, p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
			permByCode[p.Code] = p.ID
		}

		for roleName, def := range roleDefinitions {
			role, err := s.roleRepo.FindByName(txCtx, roleName)
			if err != nil {
				role = &model.Role{
					Name:        roleName,
					Description: def.Description,
					IsSystem:    true,
				}
				if createErr := s.roleRepo.Create(txCtx, role); createErr != nil {
					return fmt.Errorf("failed to seed role '%s': %w", roleName, createErr)
				}
			}

			permIDs := make([]uuid.UUID, 0, len(def.PermCodes))
			for _, code := range def.PermCodes {
				if id, ok := permByCode[code]; ok {
					permIDs = append(permIDs, id)
				}
			}
			if assignErr := s.roleRepo.UpdatePermissions(txCtx, role.ID, permIDs); assignErr != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", roleName, assignErr)
			}
		}

		return nil
	})
}

// --- Helpers ---

func parsePermissionIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid permission id '%s': %w", id, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
