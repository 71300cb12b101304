package service

// In-memory repository doubles for service tests. A single mutex serializes
// RunInTx callbacks, which stands in for the assembly row lock that
// Postgres provides in production. Rollback is not simulated except where a
// test injects a transaction error. Insert failures poison the store the
// way a failed statement aborts a Postgres transaction; RunInSavepoint
// clears the poison on error, like ROLLBACK TO SAVEPOINT.

import (
	"context"
	"errors"
	"sync"

	"bomtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type memStore struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	assemblies map[uuid.UUID]*model.Assembly
	products   map[uuid.UUID]*model.Product
	plants     map[uuid.UUID]*model.Plant
	boms       map[uuid.UUID]*model.BOM
	lines      map[uuid.UUID]*model.BOMLine
	audits     []model.AuditLog

	failCreateBatch bool
	failProducts    map[uuid.UUID]bool // per-row insert failures
	aborted         bool               // set by a failed insert until a savepoint rollback
}

func newMemStore() *memStore {
	return &memStore{
		assemblies:   make(map[uuid.UUID]*model.Assembly),
		products:     make(map[uuid.UUID]*model.Product),
		plants:       make(map[uuid.UUID]*model.Plant),
		boms:         make(map[uuid.UUID]*model.BOM),
		lines:        make(map[uuid.UUID]*model.BOMLine),
		failProducts: make(map[uuid.UUID]bool),
	}
}

func (s *memStore) addAssembly(a *model.Assembly) *model.Assembly {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.assemblies[a.ID] = a
	return a
}

func (s *memStore) addProduct(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) addPlant(p *model.Plant) *model.Plant {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.plants[p.ID] = p
	return p
}

// --- TransactionManager ---

type memTxManager struct {
	store *memStore
}

func (t *memTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	err := fn(ctx)
	t.store.mu.Lock()
	t.store.aborted = false
	t.store.mu.Unlock()
	return err
}

// RunInSavepoint mimics ROLLBACK TO SAVEPOINT: a failure inside the callback
// stops poisoning the enclosing transaction.
func (t *memTxManager) RunInSavepoint(ctx context.Context, fn func(txCtx context.Context) error) error {
	err := fn(ctx)
	if err != nil {
		t.store.mu.Lock()
		t.store.aborted = false
		t.store.mu.Unlock()
	}
	return err
}

// --- AssemblyRepository ---

type memAssemblyRepo struct {
	store *memStore
}

func (r *memAssemblyRepo) Create(ctx context.Context, assembly *model.Assembly) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.aborted {
		return errors.New("current transaction is aborted, commands ignored until end of transaction block")
	}
	if r.store.failProducts[assembly.ProductID] {
		r.store.aborted = true
		return errors.New("insert failed")
	}
	for _, existing := range r.store.assemblies {
		if existing.ProductID == assembly.ProductID && existing.PlantID == assembly.PlantID {
			r.store.aborted = true
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if assembly.ID == uuid.Nil {
		assembly.ID = uuid.New()
	}
	r.store.assemblies[assembly.ID] = assembly
	return nil
}

func (r *memAssemblyRepo) CreateBatch(ctx context.Context, assemblies []*model.Assembly) error {
	r.store.mu.Lock()
	fail := r.store.failCreateBatch
	if fail {
		r.store.aborted = true
	}
	r.store.mu.Unlock()
	if fail {
		return errors.New("bulk insert failed")
	}
	for _, a := range assemblies {
		if err := r.Create(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *memAssemblyRepo) Update(ctx context.Context, assembly *model.Assembly) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.assemblies[assembly.ID] = assembly
	return nil
}

func (r *memAssemblyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Assembly, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.assemblies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAssemblyRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Assembly, error) {
	// Serialization is provided by the tx mutex; the lookup is the same.
	return r.FindByID(ctx, id)
}

func (r *memAssemblyRepo) ExistingProductIDs(ctx context.Context, plantID uuid.UUID, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []uuid.UUID
	for _, a := range r.store.assemblies {
		if a.PlantID == plantID && want[a.ProductID] {
			out = append(out, a.ProductID)
		}
	}
	return out, nil
}

func (r *memAssemblyRepo) Search(ctx context.Context, q string, plantID *uuid.UUID, finishedGood bool, page, limit int) ([]model.Assembly, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Assembly
	for _, a := range r.store.assemblies {
		cp := *a
		if cp.Product == nil {
			if p, ok := r.store.products[cp.ProductID]; ok {
				pc := *p
				cp.Product = &pc
			}
		}
		if cp.Finished() == finishedGood && cp.Active && (plantID == nil || cp.PlantID == *plantID) {
			out = append(out, cp)
		}
	}
	return out, false, nil
}

func (r *memAssemblyRepo) BackfillClassification(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, a := range r.store.assemblies {
		if a.IsFinishedGood != nil {
			continue
		}
		p, ok := r.store.products[a.ProductID]
		if !ok {
			continue
		}
		fg := p.IsFinishedGood()
		tc := p.TypeCode()
		a.IsFinishedGood = &fg
		a.ProductTypeCode = &tc
		n++
	}
	return n, nil
}

// --- BOMRepository ---

type memBOMRepo struct {
	store *memStore
}

func (r *memBOMRepo) Create(ctx context.Context, bom *model.BOM) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.boms {
		if existing.AssemblyID == bom.AssemblyID && existing.Version == bom.Version {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if bom.ID == uuid.Nil {
		bom.ID = uuid.New()
	}
	cp := *bom
	cp.Lines = nil
	r.store.boms[cp.ID] = &cp
	return nil
}

func (r *memBOMRepo) Update(ctx context.Context, bom *model.BOM) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *bom
	cp.Lines = nil
	cp.Assembly = nil
	r.store.boms[cp.ID] = &cp
	return nil
}

func (r *memBOMRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.BOM, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.boms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBOMRepo) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.BOM, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.boms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	if a, ok := r.store.assemblies[cp.AssemblyID]; ok {
		ac := *a
		if p, ok := r.store.products[ac.ProductID]; ok {
			pc := *p
			ac.Product = &pc
		}
		cp.Assembly = &ac
	}
	for _, line := range r.store.lines {
		if line.BOMID != id {
			continue
		}
		lc := *line
		if comp, ok := r.store.assemblies[lc.ComponentID]; ok {
			cc := *comp
			if p, ok := r.store.products[cc.ProductID]; ok {
				pc := *p
				cc.Product = &pc
			}
			lc.Component = &cc
		}
		cp.Lines = append(cp.Lines, lc)
	}
	return &cp, nil
}

func (r *memBOMRepo) MaxVersion(ctx context.Context, assemblyID uuid.UUID) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	max := 0
	for _, b := range r.store.boms {
		if b.AssemblyID == assemblyID && b.Version > max {
			max = b.Version
		}
	}
	return max, nil
}

func (r *memBOMRepo) FindGoverning(ctx context.Context, assemblyID uuid.UUID, excludeID *uuid.UUID) ([]model.BOM, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.BOM
	for _, b := range r.store.boms {
		if b.AssemblyID != assemblyID || !b.Governing() {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (r *memBOMRepo) ArchiveActive(ctx context.Context, assemblyID uuid.UUID, excludeID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.boms {
		if b.AssemblyID == assemblyID && b.ID != excludeID && b.WorkflowState == model.StateActive {
			b.WorkflowState = model.StateArchived
		}
	}
	return nil
}

func (r *memBOMRepo) ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]model.BOM, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.BOM
	for _, b := range r.store.boms {
		if b.AssemblyID == assemblyID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBOMRepo) CreateLine(ctx context.Context, line *model.BOMLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.lines {
		if existing.BOMID == line.BOMID && existing.ComponentID == line.ComponentID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	cp := *line
	cp.Component = nil
	r.store.lines[cp.ID] = &cp
	return nil
}

func (r *memBOMRepo) UpdateLine(ctx context.Context, line *model.BOMLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *line
	cp.Component = nil
	r.store.lines[cp.ID] = &cp
	return nil
}

func (r *memBOMRepo) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.lines, lineID)
	return nil
}

func (r *memBOMRepo) FindLine(ctx context.Context, lineID uuid.UUID) (*model.BOMLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	l, ok := r.store.lines[lineID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

// --- AuditRepository ---

type memAuditRepo struct {
	store *memStore
}

func (r *memAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.aborted {
		return errors.New("current transaction is aborted, commands ignored until end of transaction block")
	}
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]model.AuditLog(nil), r.store.audits...), int64(len(r.store.audits)), nil
}

// --- ProductRepository ---

type memProductRepo struct {
	store *memStore
}

func (r *memProductRepo) Create(ctx context.Context, product *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.store.products[product.ID] = product
	return nil
}

func (r *memProductRepo) Update(ctx context.Context, product *model.Product) error {
	return r.Create(ctx, product)
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.products {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memProductRepo) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// --- PlantRepository ---

type memPlantRepo struct {
	store *memStore
}

func (r *memPlantRepo) Create(ctx context.Context, plant *model.Plant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if plant.ID == uuid.Nil {
		plant.ID = uuid.New()
	}
	r.store.plants[plant.ID] = plant
	return nil
}

func (r *memPlantRepo) Update(ctx context.Context, plant *model.Plant) error {
	return r.Create(ctx, plant)
}

func (r *memPlantRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Plant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.plants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlantRepo) FindByCode(ctx context.Context, code string) (*model.Plant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.plants {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPlantRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Plant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Plant
	for _, id := range ids {
		if p, ok := r.store.plants[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPlantRepo) List(ctx context.Context, page, limit int) ([]model.Plant, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Plant
	for _, p := range r.store.plants {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *memPlantRepo) CreateLine(ctx context.Context, line *model.ProductionLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return nil
}

func (r *memPlantRepo) ListLines(ctx context.Context, plantID uuid.UUID) ([]model.ProductionLine, error) {
	return nil, nil
}

func (r *memPlantRepo) CreateWorker(ctx context.Context, worker *model.Worker) error {
	if worker.ID == uuid.Nil {
		worker.ID = uuid.New()
	}
	return nil
}

func (r *memPlantRepo) ListWorkers(ctx context.Context, plantID uuid.UUID) ([]model.Worker, error) {
	return nil, nil
}
