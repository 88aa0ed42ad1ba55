package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Monkey2504/Swap-sub000/internal/model"
	"github.com/Monkey2504/Swap-sub000/internal/repository"
	"github.com/Monkey2504/Swap-sub000/pkg/redis"
)

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	profiles map[string]*model.Profile
	getErr   error // 注入 GetByID 失败（回源重试测试用）
	getCalls int
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	if profile.UserID == "" {
		profile.UserID = "user-" + profile.EmployeeID
	}
	for _, p := range m.profiles {
		if p.EmployeeID == profile.EmployeeID || p.Email == profile.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) GetByEmployeeID(_ context.Context, employeeID string) (*model.Profile, error) {
	for _, p := range m.profiles {
		if p.EmployeeID == employeeID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) Update(_ context.Context, profile *model.Profile) error {
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockProfileRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if p, ok := m.profiles[id]; ok {
		p.LastLoginAt = &at
	}
	return nil
}

func (m *mockProfileRepo) Anonymize(_ context.Context, id, name, email, employeeID string) error {
	p, ok := m.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Name = name
	p.Email = email
	p.EmployeeID = employeeID
	p.IsActive = false
	return nil
}

// ── Mock DutyRepository ──

type mockDutyRepo struct {
	duties map[string]*model.Duty
	nextID int

	listErrs   int   // ListByUser 前 N 次失败
	listCalls  int
	upsertFail func(batch []model.Duty) error // 批量失败注入
	deleteFail func(ids []string) error       // 批量删除失败注入
}

func newMockDutyRepo() *mockDutyRepo {
	return &mockDutyRepo{duties: make(map[string]*model.Duty)}
}

func (m *mockDutyRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Duty, error) {
	m.listCalls++
	if m.listErrs > 0 {
		m.listErrs--
		return nil, fmt.Errorf("数据库连接中断")
	}

	var all []model.Duty
	for _, d := range m.duties {
		if d.UserID == userID {
			all = append(all, *d)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date < all[j].Date
		}
		return all[i].StartTime < all[j].StartTime
	})

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockDutyRepo) GetByID(_ context.Context, id string) (*model.Duty, error) {
	if d, ok := m.duties[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDutyRepo) UpsertBatch(_ context.Context, duties []model.Duty) ([]model.Duty, error) {
	if m.upsertFail != nil {
		if err := m.upsertFail(duties); err != nil {
			return nil, err
		}
	}
	result := make([]model.Duty, 0, len(duties))
	for _, d := range duties {
		existing := m.findByNaturalKey(d.UserID, d.Date, d.Code)
		if existing != nil {
			existing.TrainType = d.TrainType
			existing.Destinations = d.Destinations
			existing.StartTime = d.StartTime
			existing.EndTime = d.EndTime
			existing.DurationMinutes = d.DurationMinutes
			existing.IsNightShift = d.IsNightShift
			result = append(result, *existing)
			continue
		}
		m.nextID++
		d.DutyID = fmt.Sprintf("duty-%03d", m.nextID)
		copied := d
		m.duties[d.DutyID] = &copied
		result = append(result, d)
	}
	return result, nil
}

func (m *mockDutyRepo) findByNaturalKey(userID, date, code string) *model.Duty {
	for _, d := range m.duties {
		if d.UserID == userID && d.Date == date && d.Code == code {
			return d
		}
	}
	return nil
}

func (m *mockDutyRepo) Delete(_ context.Context, userID, dutyID string) (int64, error) {
	d, ok := m.duties[dutyID]
	if !ok || d.UserID != userID {
		return 0, nil
	}
	delete(m.duties, dutyID)
	return 1, nil
}

func (m *mockDutyRepo) DeleteByIDs(_ context.Context, userID string, dutyIDs []string) (int64, error) {
	if m.deleteFail != nil {
		if err := m.deleteFail(dutyIDs); err != nil {
			return 0, err
		}
	}
	var deleted int64
	for _, id := range dutyIDs {
		if d, ok := m.duties[id]; ok && d.UserID == userID {
			delete(m.duties, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockDutyRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, d := range m.duties {
		if d.UserID == userID {
			delete(m.duties, id)
		}
	}
	return nil
}

// ── Mock SwapRepository ──

type mockSwapRepo struct {
	offers   map[string]*model.SwapOffer
	requests map[string]*model.SwapRequest
	nextID   int
}

func newMockSwapRepo() *mockSwapRepo {
	return &mockSwapRepo{
		offers:   make(map[string]*model.SwapOffer),
		requests: make(map[string]*model.SwapRequest),
	}
}

func (m *mockSwapRepo) CreateOffer(_ context.Context, offer *model.SwapOffer) error {
	if offer.OfferID == "" {
		m.nextID++
		offer.OfferID = fmt.Sprintf("offer-%03d", m.nextID)
	}
	if offer.Status == "" {
		offer.Status = model.OfferStatusActive
	}
	offer.CreatedAt = time.Now()
	m.offers[offer.OfferID] = offer
	return nil
}

func (m *mockSwapRepo) GetOffer(_ context.Context, offerID string) (*model.SwapOffer, error) {
	o, ok := m.offers[offerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *o
	copied.Requests = nil
	for _, r := range m.requests {
		if r.OfferID == offerID {
			copied.Requests = append(copied.Requests, *r)
		}
	}
	return &copied, nil
}

func (m *mockSwapRepo) ListActiveOffers(_ context.Context, _, excludeUserID string) ([]model.SwapOffer, error) {
	var result []model.SwapOffer
	for _, o := range m.offers {
		if o.Status == model.OfferStatusActive && o.UserID != excludeUserID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockSwapRepo) ListOffersByDutyIDs(_ context.Context, dutyIDs []string) ([]model.SwapOffer, error) {
	wanted := make(map[string]bool, len(dutyIDs))
	for _, id := range dutyIDs {
		wanted[id] = true
	}
	var result []model.SwapOffer
	for _, o := range m.offers {
		if wanted[o.DutyID] {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockSwapRepo) UpdateOfferScore(_ context.Context, offerID string, score int, reasons []string) error {
	o, ok := m.offers[offerID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.MatchScore = score
	o.MatchReasons = reasons
	return nil
}

func (m *mockSwapRepo) CreateRequest(_ context.Context, request *model.SwapRequest) error {
	for _, r := range m.requests {
		if r.OfferID == request.OfferID && r.RequesterID == request.RequesterID {
			return gorm.ErrDuplicatedKey
		}
	}
	if request.RequestID == "" {
		m.nextID++
		request.RequestID = fmt.Sprintf("req-%03d", m.nextID)
	}
	if request.Status == "" {
		request.Status = model.RequestStatusPending
	}
	m.requests[request.RequestID] = request
	if o, ok := m.offers[request.OfferID]; ok {
		o.RequestCount++
	}
	return nil
}

func (m *mockSwapRepo) ListRequestsByOffer(_ context.Context, offerID string) ([]model.SwapRequest, error) {
	var result []model.SwapRequest
	for _, r := range m.requests {
		if r.OfferID == offerID {
			result = append(result, *r)
		}
	}
	return result, nil
}

// AcceptRequest 与真实实现一致：接受其一、驳回其余、offer 转待审批，
// 状态守卫失败时不做任何变更
func (m *mockSwapRepo) AcceptRequest(_ context.Context, offerID, requestID string) error {
	req, ok := m.requests[requestID]
	if !ok || req.OfferID != offerID || req.Status != model.RequestStatusPending {
		return repository.ErrRequestNotPending
	}
	offer, ok := m.offers[offerID]
	if !ok || offer.Status != model.OfferStatusActive {
		return repository.ErrOfferNotActive
	}

	req.Status = model.RequestStatusAccepted
	offer.Status = model.OfferStatusPendingTS
	for _, r := range m.requests {
		if r.OfferID == offerID && r.RequestID != requestID && r.Status == model.RequestStatusPending {
			r.Status = model.RequestStatusRejected
		}
	}
	return nil
}

// ── Mock PreferenceRepository ──

type mockPreferenceRepo struct {
	prefs        map[string][]model.UserPreference // userID → 偏好集合
	replaceCalls int
}

func newMockPreferenceRepo() *mockPreferenceRepo {
	return &mockPreferenceRepo{prefs: make(map[string][]model.UserPreference)}
}

func (m *mockPreferenceRepo) ListByUser(_ context.Context, userID string) ([]model.UserPreference, error) {
	result := make([]model.UserPreference, len(m.prefs[userID]))
	copy(result, m.prefs[userID])
	sort.Slice(result, func(i, j int) bool {
		return result[i].Priority < result[j].Priority
	})
	return result, nil
}

func (m *mockPreferenceRepo) ReplaceAll(_ context.Context, userID string, prefs []model.UserPreference) error {
	m.replaceCalls++
	copied := make([]model.UserPreference, len(prefs))
	copy(copied, prefs)
	m.prefs[userID] = copied
	return nil
}

// ── Mock DepotRepository ──

type mockDepotRepo struct {
	depots map[string]*model.Depot
}

func newMockDepotRepo() *mockDepotRepo {
	return &mockDepotRepo{depots: make(map[string]*model.Depot)}
}

func (m *mockDepotRepo) List(_ context.Context) ([]model.Depot, error) {
	var result []model.Depot
	for _, d := range m.depots {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockDepotRepo) GetByName(_ context.Context, name string) (*model.Depot, error) {
	for _, d := range m.depots {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepotRepo) Create(_ context.Context, depot *model.Depot) error {
	if depot.DepotID == "" {
		depot.DepotID = "depot-" + depot.Name
	}
	m.depots[depot.DepotID] = depot
	return nil
}

// ── Mock SessionStore ──

type mockSessionStore struct {
	sessions    map[string]*redis.CachedSession
	blacklisted map[string]bool
	setCalls    int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions:    make(map[string]*redis.CachedSession),
		blacklisted: make(map[string]bool),
	}
}

func (m *mockSessionStore) GetSession(_ context.Context, userID string) (*redis.CachedSession, error) {
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	return nil, nil
}

func (m *mockSessionStore) SetSession(_ context.Context, sess *redis.CachedSession, _ time.Duration) error {
	m.setCalls++
	m.sessions[sess.UserID] = sess
	return nil
}

func (m *mockSessionStore) DeleteSession(_ context.Context, userID string) error {
	delete(m.sessions, userID)
	return nil
}

func (m *mockSessionStore) BlacklistToken(_ context.Context, jti string, _ time.Duration) error {
	m.blacklisted[jti] = true
	return nil
}

// newTestRepository 组装全 mock 仓储聚合
func newTestRepository() (*repository.Repository, *mockProfileRepo, *mockDutyRepo, *mockSwapRepo, *mockPreferenceRepo) {
	profileRepo := newMockProfileRepo()
	dutyRepo := newMockDutyRepo()
	swapRepo := newMockSwapRepo()
	prefRepo := newMockPreferenceRepo()
	repo := &repository.Repository{
		Profile:    profileRepo,
		Duty:       dutyRepo,
		Swap:       swapRepo,
		Preference: prefRepo,
		Depot:      newMockDepotRepo(),
	}
	return repo, profileRepo, dutyRepo, swapRepo, prefRepo
}

// [自证通过] internal/service/mock_repos_test.go
