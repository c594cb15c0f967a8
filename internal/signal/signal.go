// Package signal 解析告警源推送的两类输入：结构化趋势更新与自由文本交易/平仓告警。
package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
)

// Kind 信号类别
type Kind string

const (
	KindTrendUpdate Kind = "trend_update"
	KindTradeDesign Kind = "trade_design"
	KindExit        Kind = "exit"
)

// TrendUpdateType 结构化趋势更新的类型标记
const TrendUpdateType = "ema_update"

var (
	// ErrUnrecognized 无法识别的负载
	ErrUnrecognized = errors.New("unrecognized payload")
	// ErrUnknownType 结构化负载的 type 不被支持
	ErrUnknownType = errors.New("unknown json type")
	// ErrMissingInstrument 趋势更新缺少品种字段
	ErrMissingInstrument = errors.New("trend update without instrument")
)

// TrendUpdate 趋势广播器推送的结构化更新
type TrendUpdate struct {
	Instrument      string
	AboveReference  bool
	ReferenceValue  float64
	LastClose       float64
	SourceTimestamp string
	Interval        string
}

// Signal 解析结果；Kind 决定哪个字段有效
type Signal struct {
	Kind       Kind
	Instrument string
	Price      optional.Option[float64] // 仅 TradeDesign/Exit
	Trend      TrendUpdate              // 仅 TrendUpdate
}

// 品种：字母数字加 : _ . - !，覆盖交易所前缀和连续合约写法（CME_MINI:MNQ1!）
const instrumentPattern = `([A-Za-z0-9_:.!\-]+)`

var (
	// MNQZ2025 New Trade Design , Price = 25787.50
	tradeDesignRe = regexp.MustCompile(instrumentPattern + `\s+New Trade Design\s*,?\s*Price\s*=\s*([0-9.]+)`)
	// MNQZ2025 Exit Signal,  Price = 25787.00
	exitRe = regexp.MustCompile(instrumentPattern + `\s+Exit Signal\s*,?\s*Price\s*=\s*([0-9.]+)`)
)

// Parse 将原始请求体分类为 TrendUpdate / TradeDesign / Exit 之一。
// 能解码为非空 JSON 对象的负载只按 type 字段分支，未知 type 返回 ErrUnknownType。
func Parse(raw []byte) (*Signal, error) {
	trimmed := bytes.TrimSpace(raw)

	var record map[string]any
	if err := json.Unmarshal(trimmed, &record); err == nil && len(record) > 0 {
		return parseRecord(record)
	}

	text := string(trimmed)
	if m := tradeDesignRe.FindStringSubmatch(text); m != nil {
		return &Signal{Kind: KindTradeDesign, Instrument: m[1], Price: parsePrice(m[2])}, nil
	}
	if m := exitRe.FindStringSubmatch(text); m != nil {
		return &Signal{Kind: KindExit, Instrument: m[1], Price: parsePrice(m[2])}, nil
	}
	return nil, ErrUnrecognized
}

func parseRecord(record map[string]any) (*Signal, error) {
	typ := stringify(record["type"])
	if typ != TrendUpdateType {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typ)
	}

	instrument := strings.TrimSpace(firstString(record, "ticker", "instrument"))
	if instrument == "" {
		return nil, ErrMissingInstrument
	}

	return &Signal{
		Kind:       KindTrendUpdate,
		Instrument: instrument,
		Trend: TrendUpdate{
			Instrument:      instrument,
			AboveReference:  truthy(firstValue(record, "above13", "above")),
			ReferenceValue:  number(firstValue(record, "ema13", "referenceValue")),
			LastClose:       number(record["close"]),
			SourceTimestamp: stringify(record["time"]),
			Interval:        stringify(record["interval"]),
		},
	}, nil
}

func parsePrice(s string) optional.Option[float64] {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return optional.None[float64]()
	}
	return optional.Some(v)
}

func firstValue(record map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := record[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(record map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringify(record[k]); s != "" {
			return s
		}
	}
	return ""
}

// truthy 接受 "true" / "1" / "yes"（忽略大小写），其余一律 false
func truthy(v any) bool {
	switch strings.ToLower(strings.TrimSpace(stringify(v))) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// number 解析失败时返回 0，不拒绝整条消息
func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
