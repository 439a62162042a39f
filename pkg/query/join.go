package query

// JoinResult accumulates the aliased rows produced by a chain of joins,
// grounded on pipeline_steps.py::JoinResult. Later joins fold their left
// side's aliases forward, so a three-way join exposes "0","1","2" (or
// whatever aliases the caller chose) all at once on the final row.
type JoinResult struct {
	aliasToItem map[string]any
}

func newJoinResult() *JoinResult {
	return &JoinResult{aliasToItem: map[string]any{}}
}

// Get returns the item bound to alias and whether that alias is bound at
// all (not whether the bound value is non-nil — an outer join can bind an
// alias to a typed nil).
func (j *JoinResult) Get(alias string) (any, bool) {
	v, ok := j.aliasToItem[alias]
	return v, ok
}

func (j *JoinResult) addAlias(alias string, item any) error {
	if _, exists := j.aliasToItem[alias]; exists {
		return NewQueryEngineError("Alias '%s' is already used.", alias)
	}
	j.aliasToItem[alias] = item
	return nil
}

// JoinCondition tests whether a left and right row should be paired.
type JoinCondition func(left, right any) bool

// joinStep holds the fields every join kind shares.
type joinStep struct {
	OtherItems []any
	Condition  JoinCondition
	LeftAlias  string
	RightAlias string
}

func newJoinStep(other []any, cond JoinCondition, leftAlias, rightAlias string) (joinStep, error) {
	if leftAlias == rightAlias {
		return joinStep{}, NewQueryEngineError("Left and right aliases must be different.")
	}
	return joinStep{OtherItems: other, Condition: cond, LeftAlias: leftAlias, RightAlias: rightAlias}, nil
}

func (s joinStep) createJoinedResult(left, right any) (*JoinResult, error) {
	jr := newJoinResult()
	if leftJR, ok := left.(*JoinResult); ok {
		for alias, item := range leftJR.aliasToItem {
			jr.aliasToItem[alias] = item
		}
	} else {
		jr.aliasToItem[s.LeftAlias] = left
	}
	if err := jr.addAlias(s.RightAlias, right); err != nil {
		return nil, err
	}
	return jr, nil
}

// InnerJoinStep keeps only matching pairs.
type InnerJoinStep struct{ joinStep }

func NewInnerJoinStep(other []any, cond JoinCondition, leftAlias, rightAlias string) (*InnerJoinStep, error) {
	js, err := newJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return nil, err
	}
	return &InnerJoinStep{js}, nil
}

func (s *InnerJoinStep) Apply(items []any) ([]any, error) {
	var out []any
	for _, left := range items {
		for _, right := range s.OtherItems {
			if s.Condition(left, right) {
				jr, err := s.createJoinedResult(left, right)
				if err != nil {
					return nil, err
				}
				out = append(out, jr)
			}
		}
	}
	return out, nil
}

// LeftJoinStep keeps every left row, pairing unmatched ones with a nil right.
type LeftJoinStep struct{ joinStep }

func NewLeftJoinStep(other []any, cond JoinCondition, leftAlias, rightAlias string) (*LeftJoinStep, error) {
	js, err := newJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return nil, err
	}
	return &LeftJoinStep{js}, nil
}

func (s *LeftJoinStep) Apply(items []any) ([]any, error) {
	var out []any
	for _, left := range items {
		matched := false
		for _, right := range s.OtherItems {
			if s.Condition(left, right) {
				jr, err := s.createJoinedResult(left, right)
				if err != nil {
					return nil, err
				}
				out = append(out, jr)
				matched = true
			}
		}
		if !matched {
			jr, err := s.createJoinedResult(left, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, jr)
		}
	}
	return out, nil
}

// RightJoinStep keeps every right row, pairing unmatched ones with a nil left.
type RightJoinStep struct{ joinStep }

func NewRightJoinStep(other []any, cond JoinCondition, leftAlias, rightAlias string) (*RightJoinStep, error) {
	js, err := newJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return nil, err
	}
	return &RightJoinStep{js}, nil
}

func (s *RightJoinStep) Apply(items []any) ([]any, error) {
	var out []any
	for _, right := range s.OtherItems {
		matched := false
		for _, left := range items {
			if s.Condition(left, right) {
				jr, err := s.createJoinedResult(left, right)
				if err != nil {
					return nil, err
				}
				out = append(out, jr)
				matched = true
			}
		}
		if !matched {
			jr, err := s.createJoinedResult(nil, right)
			if err != nil {
				return nil, err
			}
			out = append(out, jr)
		}
	}
	return out, nil
}

// FullOuterJoinStep keeps every row from both sides.
type FullOuterJoinStep struct{ joinStep }

func NewFullOuterJoinStep(other []any, cond JoinCondition, leftAlias, rightAlias string) (*FullOuterJoinStep, error) {
	js, err := newJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return nil, err
	}
	return &FullOuterJoinStep{js}, nil
}

func (s *FullOuterJoinStep) Apply(items []any) ([]any, error) {
	var out []any
	matchedRight := map[int]bool{}
	for _, left := range items {
		matched := false
		for idx, right := range s.OtherItems {
			if s.Condition(left, right) {
				jr, err := s.createJoinedResult(left, right)
				if err != nil {
					return nil, err
				}
				out = append(out, jr)
				matched = true
				matchedRight[idx] = true
			}
		}
		if !matched {
			jr, err := s.createJoinedResult(left, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, jr)
		}
	}
	for idx, right := range s.OtherItems {
		if !matchedRight[idx] {
			jr, err := s.createJoinedResult(nil, right)
			if err != nil {
				return nil, err
			}
			out = append(out, jr)
		}
	}
	return out, nil
}
