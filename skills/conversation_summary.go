package skills

import (
	"strings"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/function"
	"github.com/hupe1980/skillmesh/model"
	"github.com/hupe1980/skillmesh/text"
)

// MaxConversationTokens bounds each chunk sent to the backend.
const MaxConversationTokens = 1024

const summarizeConversationPrompt = `BEGIN CONTENT TO SUMMARIZE:
{{$input}}

END CONTENT TO SUMMARIZE.

Summarize the conversation in 'CONTENT TO SUMMARIZE', identifying main points of discussion and any conclusions that were reached.
Do not incorporate other general knowledge.
Summary is in plain text, in complete sentences, with no markup or tags.

BEGIN SUMMARY:
`

const actionItemsPrompt = `You are an action item extractor. You will be given chat history and need to make note of action items mentioned in the chat.
Extract action items from the content if there are any. If there are no action, return nothing. If a single field is missing, use an empty string.
Return the action items in json.

Possible statuses for action items are: Open, Closed, In Progress.

EXAMPLE INPUT WITH ACTION ITEMS:

John Doe said: "I will record a demo for the new feature by Friday"
I said: "Great, thanks John. We may not use all of it but it's good to get it out there."

EXAMPLE OUTPUT:
{
    "actionItems": [
        {
            "owner": "John Doe",
            "actionItem": "Record a demo for the new feature",
            "dueDate": "Friday",
            "status": "Open",
            "notes": ""
        }
    ]
}

EXAMPLE INPUT WITHOUT ACTION ITEMS:

John Doe said: "Hey I'm going to the store, do you need anything?"
I said: "No thanks, I'm good."

EXAMPLE OUTPUT:
{
    "action_items": []
}

CONTENT STARTS HERE.

{{$input}}

CONTENT STOPS HERE.

OUTPUT:`

const topicsPrompt = `Analyze the following extract taken from a conversation transcript and extract key topics.
- Topics only worth remembering.
- Be brief. Short phrases.
- Can use broken English.
- Conciseness is very important.
- Topics can include names of memories you want to recall.
- NO LONG SENTENCES. SHORT PHRASES.
- Return in JSON
[Input]
My name is Macbeth. I used to be King of Scotland, but I died. My wife's name is Lady Macbeth and we were married for 15 years. We had no children. Our beloved dog Toby McDuff was a famous hunter of rats in the forest.
My tragic story was immortalized by Shakespeare in a play.
[Output]
{
  "topics": [
    "Macbeth",
    "King of Scotland",
    "Lady Macbeth",
    "Dog",
    "Toby McDuff",
    "Shakespeare",
    "Play",
    "Tragedy"
  ]
}
+++++
[Input]
{{$input}}
[Output]`

// ConversationSummarySkill summarizes chat transcripts and extracts action
// items and topics. Long transcripts are split into chunks that are sent
// to the backend one by one.
type ConversationSummarySkill struct {
	summarize   core.Function
	actionItems core.Function
	topics      core.Function
}

var _ function.NativeSkill = (*ConversationSummarySkill)(nil)

// NewConversationSummarySkill builds the semantic functions used by the
// skill against backend.
func NewConversationSummarySkill(backend function.BackendResolver, optFns ...func(o *function.SemanticOptions)) (*ConversationSummarySkill, error) {
	build := func(name, prompt, desc string, temperature float64) (core.Function, error) {
		opts := append([]func(o *function.SemanticOptions){func(o *function.SemanticOptions) {
			o.Description = desc
			o.Settings = model.CompletionSettings{MaxTokens: MaxConversationTokens, Temperature: temperature, TopP: 0.5}
		}}, optFns...)
		fn, err := function.NewSemantic("ConversationSummary", name, prompt, backend, opts...)
		if err != nil {
			return nil, err
		}
		return fn, nil
	}

	s := &ConversationSummarySkill{}
	var err error
	if s.summarize, err = build("SummarizeChunk", summarizeConversationPrompt, "Summarize a chunk of a conversation", 0.1); err != nil {
		return nil, err
	}
	if s.actionItems, err = build("ActionItemsChunk", actionItemsPrompt, "Extract action items from a chunk of a conversation", 0.1); err != nil {
		return nil, err
	}
	if s.topics, err = build("TopicsChunk", topicsPrompt, "Extract topics from a chunk of a conversation", 0.1); err != nil {
		return nil, err
	}
	return s, nil
}

// Functions implements function.NativeSkill.
func (s *ConversationSummarySkill) Functions() []function.Definition {
	input := []core.ParameterView{{Name: core.MainKey, Description: "A long conversation transcript."}}
	return []function.Definition{
		{Name: "SummarizeConversation", Description: "Given a long conversation transcript, summarize the conversation.", Parameters: input, Fn: s.SummarizeConversation},
		{Name: "GetConversationActionItems", Description: "Given a long conversation transcript, identify action items.", Parameters: input, Fn: s.GetConversationActionItems},
		{Name: "GetConversationTopics", Description: "Given a long conversation transcript, identify topics worth remembering.", Parameters: input, Fn: s.GetConversationTopics},
	}
}

// SummarizeConversation summarizes input chunk by chunk.
func (s *ConversationSummarySkill) SummarizeConversation(input string, c *core.Context) (string, error) {
	return s.perChunk(s.summarize, input, c)
}

// GetConversationActionItems extracts action items chunk by chunk.
func (s *ConversationSummarySkill) GetConversationActionItems(input string, c *core.Context) (string, error) {
	return s.perChunk(s.actionItems, input, c)
}

// GetConversationTopics extracts topics chunk by chunk.
func (s *ConversationSummarySkill) GetConversationTopics(input string, c *core.Context) (string, error) {
	return s.perChunk(s.topics, input, c)
}

func (s *ConversationSummarySkill) perChunk(fn core.Function, input string, c *core.Context) (string, error) {
	lines := text.SplitPlainTextLines(input, MaxConversationTokens)
	paragraphs := text.SplitPlainTextParagraphs(lines, MaxConversationTokens)

	results := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if c.Canceled() {
			return "", core.NewError(core.KindCanceled, "conversation processing canceled", c.Context().Err())
		}
		out := fn.Invoke(c.Derive(core.NewContextVariables(p)))
		if out.ErrorOccurred() {
			return "", out.LastError()
		}
		results = append(results, out.Result())
	}
	return strings.Join(results, "\n"), nil
}
