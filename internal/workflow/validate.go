package workflow

import (
	"fmt"
	"strings"

	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/models"
)

// SetStepData validates and stores the payload for a step. On a
// validation failure the stored data for that step is left untouched
// and a *ValidationError is returned. Setting data never moves the
// step pointer and never clears a previously obtained verdict for a
// different step.
func (m *Machine) SetStepData(step int, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch step {
	case StepMarketSession:
		data, ok := payload.(*models.MarketSessionData)
		if !ok {
			return payloadTypeError(step, payload)
		}
		if err := validateMarketSession(data); err != nil {
			return err
		}
		m.state.step1Data = data
	case StepTrendAnalysis:
		data, ok := payload.(*models.TrendAnalysisData)
		if !ok {
			return payloadTypeError(step, payload)
		}
		if err := validateTrendAnalysis(data); err != nil {
			return err
		}
		m.state.step2Data = data
		m.state.step2Verdict = nil
	case StepAOIMapping:
		data, ok := payload.(*models.AOIData)
		if !ok {
			return payloadTypeError(step, payload)
		}
		if err := validateAOI(data); err != nil {
			return err
		}
		m.state.step3Data = data
		m.state.step3Verdict = nil
	case StepPatternValidation:
		data, ok := payload.(*models.PatternData)
		if !ok {
			return payloadTypeError(step, payload)
		}
		if err := validatePattern(data); err != nil {
			return err
		}
		m.state.step4Data = data
		m.state.step4Verdict = nil
	case StepRiskCalculation:
		data, ok := payload.(*models.RiskData)
		if !ok {
			return payloadTypeError(step, payload)
		}
		if err := validateRisk(data); err != nil {
			return err
		}
		m.state.step5Data = data
		m.state.step5Verdict = nil
	default:
		return &coacherrors.ValidationError{
			Field:   "step",
			Value:   fmt.Sprintf("%d", step),
			Message: "step has no settable payload",
		}
	}

	return nil
}

func payloadTypeError(step int, payload any) error {
	return &coacherrors.ValidationError{
		Field:   "payload",
		Value:   fmt.Sprintf("%T", payload),
		Message: fmt.Sprintf("wrong payload type for step %d", step),
	}
}

func validateMarketSession(data *models.MarketSessionData) error {
	if data == nil {
		return &coacherrors.ValidationError{Field: "payload", Message: "payload is required"}
	}
	if !models.KnownPair(data.Pair) {
		return &coacherrors.ValidationError{
			Field:   "pair",
			Value:   data.Pair,
			Message: "not a recognized currency pair",
		}
	}
	if data.Timestamp.IsZero() {
		return &coacherrors.ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	return nil
}

func validateTrendAnalysis(data *models.TrendAnalysisData) error {
	if data == nil {
		return &coacherrors.ValidationError{Field: "payload", Message: "payload is required"}
	}
	for field, trend := range map[string]models.Trend{
		"weekly_trend":    data.WeeklyTrend,
		"daily_trend":     data.DailyTrend,
		"four_hour_trend": data.FourHourTrend,
	} {
		if !trend.Valid() {
			return &coacherrors.ValidationError{
				Field:   field,
				Value:   string(trend),
				Message: "must be bullish, bearish, or ranging",
			}
		}
	}
	return nil
}

func validateAOI(data *models.AOIData) error {
	if data == nil {
		return &coacherrors.ValidationError{Field: "payload", Message: "payload is required"}
	}
	if !data.AOIType.Valid() {
		return &coacherrors.ValidationError{
			Field:   "aoi_type",
			Value:   string(data.AOIType),
			Message: "not a recognized area-of-interest type",
		}
	}
	if data.PriceLevel <= 0 {
		return &coacherrors.ValidationError{
			Field:   "price_level",
			Value:   fmt.Sprintf("%v", data.PriceLevel),
			Message: "must be positive",
		}
	}
	if strings.TrimSpace(data.Description) == "" {
		return &coacherrors.ValidationError{Field: "description", Message: "description is required"}
	}
	return nil
}

func validatePattern(data *models.PatternData) error {
	if data == nil {
		return &coacherrors.ValidationError{Field: "payload", Message: "payload is required"}
	}
	if !data.PatternType.Valid() {
		return &coacherrors.ValidationError{
			Field:   "pattern_type",
			Value:   string(data.PatternType),
			Message: "not a recognized pattern type",
		}
	}
	switch data.PatternType {
	case models.PatternHeadAndShoulders:
		for _, key := range []string{"left_shoulder", "head", "right_shoulder"} {
			v, ok := data.PatternDetails[key]
			if !ok || v <= 0 {
				return &coacherrors.ValidationError{
					Field:   "pattern_details." + key,
					Message: "required positive price level for head and shoulders",
				}
			}
		}
	case models.PatternEngulfing:
		if v, ok := data.PatternDetails["body_size"]; !ok || v <= 0 {
			return &coacherrors.ValidationError{
				Field:   "pattern_details.body_size",
				Message: "required positive size for engulfing pattern",
			}
		}
	}
	return nil
}

func validateRisk(data *models.RiskData) error {
	if data == nil {
		return &coacherrors.ValidationError{Field: "payload", Message: "payload is required"}
	}
	if data.AccountSize <= 0 {
		return &coacherrors.ValidationError{
			Field:   "account_size",
			Value:   fmt.Sprintf("%v", data.AccountSize),
			Message: "must be positive",
		}
	}
	if data.RiskPercentage <= 0 || data.RiskPercentage > 100 {
		return &coacherrors.ValidationError{
			Field:   "risk_percentage",
			Value:   fmt.Sprintf("%v", data.RiskPercentage),
			Message: "must be between 0 and 100",
		}
	}
	if data.StopPips <= 0 {
		return &coacherrors.ValidationError{
			Field:   "stop_pips",
			Value:   fmt.Sprintf("%v", data.StopPips),
			Message: "must be positive",
		}
	}
	if data.TargetPips <= 0 {
		return &coacherrors.ValidationError{
			Field:   "target_pips",
			Value:   fmt.Sprintf("%v", data.TargetPips),
			Message: "must be positive",
		}
	}
	return nil
}
