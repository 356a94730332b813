package schema

// SessionInfo is best-effort metadata scraped from agent output.
// A nil field means the value has not been observed.
type SessionInfo struct {
	Model        *string  `json:"model,omitempty"`
	InputTokens  *int64   `json:"input_tokens,omitempty"`
	OutputTokens *int64   `json:"output_tokens,omitempty"`
	TotalCost    *float64 `json:"total_cost,omitempty"`
	ContextUsed  *int64   `json:"context_used,omitempty"`
	ContextMax   *int64   `json:"context_max,omitempty"`
	DailyUsed    *int64   `json:"daily_used,omitempty"`
	DailyMax     *int64   `json:"daily_max,omitempty"`
	WeeklyUsed   *int64   `json:"weekly_used,omitempty"`
	WeeklyMax    *int64   `json:"weekly_max,omitempty"`
}

// IsEmpty reports whether no field has been observed.
func (i SessionInfo) IsEmpty() bool {
	return i.Model == nil && i.InputTokens == nil && i.OutputTokens == nil &&
		i.TotalCost == nil && i.ContextUsed == nil && i.ContextMax == nil &&
		i.DailyUsed == nil && i.DailyMax == nil && i.WeeklyUsed == nil && i.WeeklyMax == nil
}

// Merge returns a copy of i with every non-nil field of other applied on top.
func (i SessionInfo) Merge(other SessionInfo) SessionInfo {
	out := i.Clone()
	if other.Model != nil {
		out.Model = cloneString(other.Model)
	}
	mergeInt(&out.InputTokens, other.InputTokens)
	mergeInt(&out.OutputTokens, other.OutputTokens)
	if other.TotalCost != nil {
		v := *other.TotalCost
		out.TotalCost = &v
	}
	mergeInt(&out.ContextUsed, other.ContextUsed)
	mergeInt(&out.ContextMax, other.ContextMax)
	mergeInt(&out.DailyUsed, other.DailyUsed)
	mergeInt(&out.DailyMax, other.DailyMax)
	mergeInt(&out.WeeklyUsed, other.WeeklyUsed)
	mergeInt(&out.WeeklyMax, other.WeeklyMax)
	return out
}

// Clone returns a deep copy so callers never share pointers with session state.
func (i SessionInfo) Clone() SessionInfo {
	out := SessionInfo{Model: cloneString(i.Model)}
	out.InputTokens = cloneInt(i.InputTokens)
	out.OutputTokens = cloneInt(i.OutputTokens)
	if i.TotalCost != nil {
		v := *i.TotalCost
		out.TotalCost = &v
	}
	out.ContextUsed = cloneInt(i.ContextUsed)
	out.ContextMax = cloneInt(i.ContextMax)
	out.DailyUsed = cloneInt(i.DailyUsed)
	out.DailyMax = cloneInt(i.DailyMax)
	out.WeeklyUsed = cloneInt(i.WeeklyUsed)
	out.WeeklyMax = cloneInt(i.WeeklyMax)
	return out
}

func mergeInt(dst **int64, src *int64) {
	if src != nil {
		*dst = cloneInt(src)
	}
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
