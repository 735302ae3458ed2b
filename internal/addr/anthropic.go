package addr

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const judgeSystemPrompt = `You classify Korean addresses. Answer with exactly one line:
TYPE|reason

where TYPE is ROAD (road-name address: street suffix 로/길/대로 plus building number),
PARCEL (lot-number address: legal district 동/리/가 plus lot number), or UNKNOWN.
The reason must be one short sentence naming the marker you relied on.`

// AnthropicJudge resolves ambiguous classifications by asking a Claude
// model. It satisfies the Judge interface; the justification in the
// returned Judgment is the model's own reasoning line.
type AnthropicJudge struct {
	client sdk.Client
	model  string
}

// NewAnthropicJudge builds a judge backed by the Anthropic API.
func NewAnthropicJudge(apiKey, model string) *AnthropicJudge {
	return &AnthropicJudge{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Judge asks the model to classify one address.
func (j *AnthropicJudge) Judge(ctx context.Context, address string) (Judgment, error) {
	msg, err := j.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(j.model),
		MaxTokens:   128,
		Temperature: sdk.Float(0),
		System:      []sdk.TextBlockParam{{Text: judgeSystemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(address)),
		},
	})
	if err != nil {
		return Judgment{}, eris.Wrap(err, "addr: judge request")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return parseJudgment(text)
}

// parseJudgment parses a "TYPE|reason" line from the model.
func parseJudgment(text string) (Judgment, error) {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	verdict, reason, _ := strings.Cut(line, "|")
	verdict = strings.ToUpper(strings.TrimSpace(verdict))
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}

	switch Type(verdict) {
	case TypeRoad, TypeParcel, TypeUnknown:
		return Judgment{Type: Type(verdict), Reason: reason}, nil
	default:
		return Judgment{}, eris.Errorf("addr: unparseable judge verdict %q", line)
	}
}
