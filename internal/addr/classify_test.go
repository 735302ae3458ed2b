package addr

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubJudge returns a fixed judgment, recording whether it was consulted.
type stubJudge struct {
	judgment Judgment
	err      error
	called   bool
}

func (s *stubJudge) Judge(_ context.Context, _ string) (Judgment, error) {
	s.called = true
	return s.judgment, s.err
}

func TestClassify_Heuristics(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		addr string
		want Type
	}{
		{"road with building number", "서울 강남구 테헤란로 152", TypeRoad},
		{"road short form", "테헤란로 123", TypeRoad},
		{"numbered gil", "퇴계로36길 2-11", TypeRoad},
		{"underground road number", "세종대로 지하 189", TypeRoad},
		{"parcel dong with lot", "강남구 역삼동 737", TypeParcel},
		{"parcel with sub-lot", "역삼동 123-45", TypeParcel},
		{"parcel numbered ga", "중구 명동2가 25-36", TypeParcel},
		{"parcel mountain lot", "은평구 진관동 산 25", TypeParcel},
		{"parcel ri", "기흥구 고매리 123", TypeParcel},
		{"empty", "", TypeUnknown},
		{"whitespace only", "   \t ", TypeUnknown},
		{"no markers", "서울 어딘가", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.addr)
			assert.Equal(t, tt.want, got.Type)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestClassify_EmptyIsConfidentUnknown(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "")
	assert.Equal(t, TypeUnknown, got.Type)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestClassify_AmbiguousDelegatesToJudge(t *testing.T) {
	judge := &stubJudge{judgment: Judgment{Type: TypeParcel, Reason: "충무로3가 is a legal district"}}
	c := NewClassifier(judge)

	// 충무로3가 carries both a road-looking suffix and a parcel marker.
	got := c.Classify(context.Background(), "중구 충무로3가 25-5")
	assert.True(t, judge.called)
	assert.Equal(t, TypeParcel, got.Type)
	assert.Contains(t, got.Reason, "judge:")
}

func TestClassify_UnambiguousSkipsJudge(t *testing.T) {
	judge := &stubJudge{judgment: Judgment{Type: TypeParcel, Reason: "should not be used"}}
	c := NewClassifier(judge)

	got := c.Classify(context.Background(), "테헤란로 152")
	assert.False(t, judge.called, "clear road address must not hit the judge")
	assert.Equal(t, TypeRoad, got.Type)
}

func TestClassify_JudgeFailureFallsBackToUnknown(t *testing.T) {
	judge := &stubJudge{err: eris.New("api down")}
	c := NewClassifier(judge)

	got := c.Classify(context.Background(), "서울 어딘가")
	assert.Equal(t, TypeUnknown, got.Type)
	assert.Contains(t, got.Reason, "judge unavailable")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  서울   강남구\t테헤란로 152 ", "서울 강남구 테헤란로 152"},
		{"strips unsupported runes", "역삼동 123-45 ★☆", "역삼동 123-45"},
		{"keeps lot hyphen and parens", "명동2가 25-36 (명동)", "명동2가 25-36 (명동)"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestParseJudgment(t *testing.T) {
	j, err := parseJudgment("PARCEL|district marker 동 with lot number")
	require.NoError(t, err)
	assert.Equal(t, TypeParcel, j.Type)
	assert.Equal(t, "district marker 동 with lot number", j.Reason)

	j, err = parseJudgment("road | street suffix\nextra commentary")
	require.NoError(t, err)
	assert.Equal(t, TypeRoad, j.Type)

	_, err = parseJudgment("MAYBE|unclear")
	require.Error(t, err)
}
