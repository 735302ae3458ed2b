// Package addr classifies Korean address strings as road-name or
// parcel (lot-number) form ahead of geocoding.
package addr

import (
	"context"
	"regexp"

	"go.uber.org/zap"
)

// Type is the inferred address scheme.
type Type string

const (
	// TypeRoad is a road-name address: street suffix plus building number.
	TypeRoad Type = "ROAD"
	// TypeParcel is a legacy lot-number address: administrative district
	// plus lot number.
	TypeParcel Type = "PARCEL"
	// TypeUnknown marks addresses no heuristic or judge could place.
	TypeUnknown Type = "UNKNOWN"
)

// Classification is the outcome of classifying one address.
type Classification struct {
	Type       Type
	Confidence float64
	Reason     string
}

// Judgment is a delegated classification decision for ambiguous input.
type Judgment struct {
	Type   Type
	Reason string
}

// Judge resolves addresses the structural heuristics cannot. Implementations
// must be side-effect free from the classifier's perspective.
type Judge interface {
	Judge(ctx context.Context, address string) (Judgment, error)
}

var (
	// Road-name form: a 로/길/대로 suffix directly followed by a building
	// number, e.g. "테헤란로 152", "세종대로 110", "퇴계로36길 2-11".
	roadPattern = regexp.MustCompile(`(대로|로|길)\s*(지하\s*)?\d+(-\d+)?`)

	// Parcel form: a legal-dong/ri/ga marker followed by a lot number,
	// e.g. "역삼동 737", "명동2가 25-36", 산 lots like "진관동 산 25".
	parcelPattern = regexp.MustCompile(`[가-힣]+\d*(동|리|가|읍|면)\s*(산\s*)?\d+(-\d+)?`)
)

// Classifier decides the address type for a raw address string. It never
// returns an error: malformed input classifies as UNKNOWN.
type Classifier struct {
	judge Judge
}

// NewClassifier returns a Classifier. judge may be nil, in which case
// ambiguous addresses classify as UNKNOWN.
func NewClassifier(judge Judge) *Classifier {
	return &Classifier{judge: judge}
}

// Classify normalizes raw and returns its classification. Empty or
// whitespace-only input is UNKNOWN and must not be sent to the provider.
func (c *Classifier) Classify(ctx context.Context, raw string) Classification {
	s := Normalize(raw)
	if s == "" {
		return Classification{Type: TypeUnknown, Confidence: 1.0, Reason: "empty address"}
	}

	road := roadPattern.MatchString(s)
	parcel := parcelPattern.MatchString(s)

	switch {
	case road && !parcel:
		return Classification{Type: TypeRoad, Confidence: 0.9, Reason: "road suffix with building number"}
	case parcel && !road:
		return Classification{Type: TypeParcel, Confidence: 0.9, Reason: "district marker with lot number"}
	case road && parcel:
		return c.delegate(ctx, s, "both road and parcel markers present")
	default:
		return c.delegate(ctx, s, "no road or parcel markers found")
	}
}

// delegate consults the judge for addresses the heuristics could not
// settle. Without a judge, or when the judge fails, the address stays
// UNKNOWN and the caller decides the fallback.
func (c *Classifier) delegate(ctx context.Context, address, why string) Classification {
	if c.judge == nil {
		return Classification{Type: TypeUnknown, Confidence: 0.3, Reason: why}
	}

	j, err := c.judge.Judge(ctx, address)
	if err != nil {
		zap.L().Warn("classification judge failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return Classification{Type: TypeUnknown, Confidence: 0.3, Reason: why + "; judge unavailable"}
	}

	return Classification{Type: j.Type, Confidence: 0.7, Reason: "judge: " + j.Reason}
}
