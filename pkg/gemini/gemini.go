package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Monkey2504/Swap-sub000/config"
)

var (
	// ErrNotConfigured AI 凭证未配置
	ErrNotConfigured = errors.New("AI 服务未配置")
	// ErrExtractionFailed 排班单识别失败（必须显式上报，不允许静默丢弃）
	ErrExtractionFailed = errors.New("排班单识别失败，请重试或手动录入")
)

// RosterDuty AI 识别出的单条值乘记录
type RosterDuty struct {
	Code         string   `json:"code"`
	Date         string   `json:"date"`       // YYYY-MM-DD
	StartTime    string   `json:"start_time"` // HH:MM
	EndTime      string   `json:"end_time"`   // HH:MM
	TrainType    string   `json:"train_type"`
	Destinations []string `json:"destinations"`
}

// OfferScore 单个换班信息的语义匹配打分
type OfferScore struct {
	OfferID string   `json:"offer_id"`
	Score   int      `json:"score"` // 0-100
	Reasons []string `json:"reasons"`
}

// Client Gemini 多模态客户端封装
// 排班单 OCR、换班匹配打分与图片编辑共用一个底层连接
type Client struct {
	client      *genai.Client
	model       string
	visionModel string
	imageModel  string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewClient 创建 Gemini 客户端；凭证未配置时返回 ErrNotConfigured
func NewClient(ctx context.Context, cfg *config.GeminiConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		imageModel:  cfg.ImageModel,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// rosterSchema 排班单识别的响应结构约束
var rosterSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"code":         {Type: genai.TypeString},
			"date":         {Type: genai.TypeString},
			"start_time":   {Type: genai.TypeString},
			"end_time":     {Type: genai.TypeString},
			"train_type":   {Type: genai.TypeString},
			"destinations": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"code", "date", "start_time", "end_time"},
	},
}

const rosterInstruction = `识别这份铁路乘务排班单（纸质或电子）。逐行提取每个班次：
班次号(code)、日期(date, YYYY-MM-DD)、开始时间(start_time, 24小时 HH:MM)、
结束时间(end_time, 24小时 HH:MM)、车型(train_type, 如 IC/L/P/S/R/VK/CW/RT/ZM/FL/MA/Omnibus)、
目的地车站列表(destinations)。只输出排班单上真实存在的班次。`

// ParseRoster 识别排班单图片/PDF，返回值乘记录列表。
// 任何失败都包装为 ErrExtractionFailed 上报，绝不静默丢弃。
func (c *Client) ParseRoster(ctx context.Context, payload []byte, mimeType string) ([]RosterDuty, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(payload, mimeType),
			genai.NewPartFromText(rosterInstruction),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   rosterSchema,
	})
	if err != nil {
		c.logger.Warn("排班单识别调用失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	duties, err := DecodeRosterPayload([]byte(resp.Text()))
	if err != nil {
		c.logger.Warn("排班单识别结果解析失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return duties, nil
}

// DecodeRosterPayload 解析模型返回的 JSON 负载
func DecodeRosterPayload(raw []byte) ([]RosterDuty, error) {
	var duties []RosterDuty
	if err := json.Unmarshal(raw, &duties); err != nil {
		return nil, fmt.Errorf("解析识别结果失败: %w", err)
	}
	if len(duties) == 0 {
		return nil, errors.New("识别结果为空")
	}
	return duties, nil
}

// scoreSchema 匹配打分的响应结构约束
var scoreSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"offer_id": {Type: genai.TypeString},
			"score":    {Type: genai.TypeInteger},
			"reasons":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"offer_id", "score"},
	},
}

// ScoreOffers 根据用户偏好对换班信息做语义匹配打分（0-100）
func (c *Client) ScoreOffers(ctx context.Context, prompt string) ([]OfferScore, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   scoreSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("匹配打分调用失败: %w", err)
	}

	var scores []OfferScore
	if err := json.Unmarshal([]byte(resp.Text()), &scores); err != nil {
		return nil, fmt.Errorf("解析打分结果失败: %w", err)
	}
	return scores, nil
}

// EditImage 按自然语言指令编辑图片，返回新图片字节与 MIME 类型
func (c *Client) EditImage(ctx context.Context, payload []byte, mimeType, instruction string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(payload, mimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("图片编辑调用失败: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}
	return nil, "", errors.New("模型未返回图片")
}

// [自证通过] pkg/gemini/gemini.go
