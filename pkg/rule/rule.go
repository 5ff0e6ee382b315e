// Package rule 实现排班调整规则
// ルールはタグ付きバリアント。未知の type はデコード時に弾く。
package rule

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/model"
)

// Kind 规则种别
type Kind string

const (
	KindPairNotTogether    Kind = "pair_not_together"    // 二人を同日に入れない
	KindIncreaseStaffDay   Kind = "increase_staff_day"   // 特定曜日の人員増
	KindAddEmployeeShift   Kind = "add_employee_shift"   // 指定従業員のシフト追加
	KindRedistributeShifts Kind = "redistribute_shifts"  // 負荷の再配分
)

// Rule 调整规则
type Rule interface {
	Kind() Kind
}

// PairNotTogether 同日勤務を避けたい二人組
type PairNotTogether struct {
	AEmployeeID int64 `json:"a_employee_id"`
	BEmployeeID int64 `json:"b_employee_id"`
}

func (PairNotTogether) Kind() Kind { return KindPairNotTogether }

// IncreaseStaffDay 特定曜日の人員を目標数まで増やす
type IncreaseStaffDay struct {
	Day         string `json:"day"`          // monday .. sunday
	TargetCount int    `json:"target_count"`
}

func (IncreaseStaffDay) Kind() Kind { return KindIncreaseStaffDay }

// AddEmployeeShift 指定従業員の特定日にシフトを置く
// 既存シフトがあればスロットを置換、なければ追加。
type AddEmployeeShift struct {
	EmployeeID int64        `json:"employee_id"`
	Date       string       `json:"date"`
	Slot       model.SlotID `json:"slot"`
}

func (AddEmployeeShift) Kind() Kind { return KindAddEmployeeShift }

// RedistributeShifts 過重労働者から軽負荷者へシフトを移す
type RedistributeShifts struct{}

func (RedistributeShifts) Kind() Kind { return KindRedistributeShifts }

// envelope ワイヤ形式
// pair_not_together は歴史的経緯でトップレベルに ID を持つ。
// それ以外のパラメータは parameters 配下。
type envelope struct {
	Type        Kind            `json:"type"`
	AEmployeeID int64           `json:"a_employee_id,omitempty"`
	BEmployeeID int64           `json:"b_employee_id,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Decode 解析规则 JSON
// 未知の type は INVALID_INPUT エラー。
func Decode(raw json.RawMessage) (Rule, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "ルールを解析できませんでした").WithCause(err)
	}

	switch env.Type {
	case KindPairNotTogether:
		return PairNotTogether{AEmployeeID: env.AEmployeeID, BEmployeeID: env.BEmployeeID}, nil

	case KindIncreaseStaffDay:
		r := IncreaseStaffDay{Day: "monday", TargetCount: 3}
		if len(env.Parameters) > 0 {
			if err := json.Unmarshal(env.Parameters, &r); err != nil {
				return nil, apperrors.New(apperrors.CodeInvalidInput, "parameters を解析できませんでした").WithCause(err)
			}
		}
		return r, nil

	case KindAddEmployeeShift:
		r := AddEmployeeShift{Slot: model.SlotEarly}
		if len(env.Parameters) > 0 {
			if err := json.Unmarshal(env.Parameters, &r); err != nil {
				return nil, apperrors.New(apperrors.CodeInvalidInput, "parameters を解析できませんでした").WithCause(err)
			}
		}
		if r.EmployeeID == 0 || r.Date == "" {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "add_employee_shift には employee_id と date が必要です")
		}
		return r, nil

	case KindRedistributeShifts:
		return RedistributeShifts{}, nil

	default:
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("未対応のルール type: %s", env.Type))
	}
}

// Encode 序列化规则（ChangeSet への埋め込み用）
func Encode(r Rule) json.RawMessage {
	switch v := r.(type) {
	case PairNotTogether:
		raw, _ := json.Marshal(struct {
			Type Kind `json:"type"`
			PairNotTogether
		}{KindPairNotTogether, v})
		return raw
	case IncreaseStaffDay:
		params, _ := json.Marshal(v)
		raw, _ := json.Marshal(envelope{Type: KindIncreaseStaffDay, Parameters: params})
		return raw
	case AddEmployeeShift:
		params, _ := json.Marshal(v)
		raw, _ := json.Marshal(envelope{Type: KindAddEmployeeShift, Parameters: params})
		return raw
	case RedistributeShifts:
		raw, _ := json.Marshal(envelope{Type: KindRedistributeShifts})
		return raw
	default:
		return nil
	}
}
