// Package parser decodes pose strings published by the robot into core.Pose values.
package parser

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/frc5024/fieldsim/pkg/core"
)

// DefaultSentinel is the value the telemetry layer returns for a key that has not been published.
const DefaultSentinel = "None"

// DefaultFallback is where the robot is placed when no pose has been published.
var DefaultFallback = core.Pose{X: 3, Y: 0, Heading: 45}

// decimalPattern accepts plain decimal numbers with an optional exponent.
// Hex floats, Inf and NaN are rejected even though strconv would take them.
var decimalPattern = regexp.MustCompile(`^[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?$`)

// valueToken locates one numeric value in the space separated pose string.
// index < 0 means the last token.
type valueToken struct {
	field  string
	index  int
	suffix int
}

// poseLayout matches the robot's Pose2d formatter:
//
//	Pose2d(Translation2d(X: 1.50, Y: 2.00), Rotation2d(Rads: 1.57, Deg: 90.00))
//
// Changing it changes the accepted wire format.
var poseLayout = [3]valueToken{
	{field: "x", index: 1, suffix: 1},
	{field: "y", index: 3, suffix: 2},
	{field: "heading", index: -1, suffix: 2},
}

const minTokens = 4

// Parser turns raw telemetry strings into poses.
// It holds no per-call state and is safe for concurrent use.
type Parser struct {
	logger   *slog.Logger
	sentinel string
	fallback core.Pose
}

// NewParser creates a parser that returns fallback whenever the telemetry value equals sentinel.
func NewParser(logger *slog.Logger, sentinel string, fallback core.Pose) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:   logger,
		sentinel: sentinel,
		fallback: fallback,
	}
}

// Sentinel returns the value treated as "no pose published".
func (p *Parser) Sentinel() string {
	return p.sentinel
}

// Fallback returns the pose used when telemetry is absent.
func (p *Parser) Fallback() core.Pose {
	return p.fallback
}

// IsAbsent reports whether raw is the telemetry sentinel, either on its own
// or as the first token of the string.
func (p *Parser) IsAbsent(raw string) bool {
	if raw == p.sentinel {
		return true
	}
	first, _, _ := strings.Cut(raw, " ")
	return first == p.sentinel
}

// Decode parses raw into a pose. Absent telemetry yields the fallback pose;
// anything else that does not match the pose layout yields a *DecodeError.
func (p *Parser) Decode(raw string) (core.Pose, error) {
	if p.IsAbsent(raw) {
		p.logger.Debug("No pose published, using fallback", "fallback", p.fallback)
		return p.fallback, nil
	}

	tokens := strings.Split(raw, " ")
	if len(tokens) < minTokens {
		return core.Pose{}, &DecodeError{
			Reason: TokenCountMismatch,
			Err:    fmt.Errorf("got %d tokens, want at least %d", len(tokens), minTokens),
		}
	}

	var values [len(poseLayout)]float64
	for i, vt := range poseLayout {
		idx := vt.index
		if idx < 0 {
			idx = len(tokens) - 1
		}
		v, err := parseValue(vt, tokens[idx])
		if err != nil {
			return core.Pose{}, err
		}
		values[i] = v
	}

	return core.Pose{X: values[0], Y: values[1], Heading: values[2]}, nil
}

// parseValue strips the token's fixed suffix and parses what remains.
// The suffix is counted in runes so a degree sign strips as one character.
// A stripped rune that is a digit or '.' means the suffix was short; the token is malformed.
func parseValue(vt valueToken, token string) (float64, error) {
	runes := []rune(token)
	if len(runes) <= vt.suffix {
		return 0, &DecodeError{Reason: MalformedToken, Field: vt.field, Token: token}
	}

	cut := len(runes) - vt.suffix
	for _, r := range runes[cut:] {
		if unicode.IsDigit(r) || r == '.' {
			return 0, &DecodeError{Reason: MalformedToken, Field: vt.field, Token: token}
		}
	}

	body := string(runes[:cut])
	if !decimalPattern.MatchString(body) {
		return 0, &DecodeError{Reason: NonNumericValue, Field: vt.field, Token: token}
	}

	v, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, &DecodeError{Reason: NonNumericValue, Field: vt.field, Token: token, Err: err}
	}
	return v, nil
}

// FormatPose renders a pose in the layout Decode accepts, with enough
// precision that Decode(FormatPose(p)) returns p for any finite pose.
func FormatPose(p core.Pose) string {
	return fmt.Sprintf("Pose2d(Translation2d(X: %s, Y: %s), Rotation2d(Rads: %s, Deg: %s))",
		formatFloat(p.X),
		formatFloat(p.Y),
		formatFloat(p.Heading*math.Pi/180),
		formatFloat(p.Heading),
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
