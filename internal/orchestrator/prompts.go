package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flemzord/mategen/internal/conversation"
	"github.com/flemzord/mategen/internal/provider"
)

// Developer-mode suffixes appended to the latest question for the duration
// of a turn.
const (
	CoTSuffix      = "Please think step by step and draw a conclusion."
	MarkdownSuffix = "Please format all responses in markdown."
)

// ExecutePlanPrompt follows an accepted decomposition plan.
const ExecutePlanPrompt = "Very well, please execute the process step by step."

// DeclinedCallPrefix starts the result of a tool call the human sent back
// for revision; the feedback follows.
const DeclinedCallPrefix = "Call not executed: "

// Debug prompts.
var (
	FastDebugPrompts = []string{
		"Your code has errors. Please modify the code according to the error information and re-execute.",
	}
	DeepDebugPrompts = []string{
		"The previous code execution resulted in an error. Where do you think the code was written incorrectly?",
		"Okay. Based on your analysis, theoretically, how should this error be resolved?",
		"Very well. Next, please write and run the corresponding code according to your logic.",
	}
)

const decompositionTemplate = "The existing user question is: “%s”. How many steps are needed to answer this question? " +
	"If no decomposition is required, please directly answer the original question."

const rephraseTemplate = "The user's question is: %s. This question is somewhat complex, and the user's intent is unclear. " +
	"Please write a prompt to guide the user to rephrase their question."

// DecompositionQuestion rephrases question as a step-count request.
func DecompositionQuestion(question string) string {
	return fmt.Sprintf(decompositionTemplate, question)
}

// RephrasePrompt asks the model to guide the user toward a clearer question.
func RephrasePrompt(question string) string {
	return fmt.Sprintf(rephraseTemplate, question)
}

type exemplar struct {
	question string
	answer   string
}

var decompositionExemplars = []exemplar{
	{
		question: "What is Google Cloud Email?",
		answer: "Google Cloud Email refers to the Gmail service within Google Workspace (formerly G Suite). " +
			"It is a secure, intelligent, and user-friendly email service with 15GB of free storage, allowing you to receive and store emails directly. " +
			"Gmail automatically filters spam and virus emails and can be accessed from any location via computer or mobile devices. " +
			"You can use search and labeling features to organize emails and make email handling more efficient.",
	},
	{
		question: "Please introduce OpenAI.",
		answer: "OpenAI is a company that develops and applies friendly artificial intelligence. " +
			"Its goal is to ensure that artificial general intelligence (AGI) benefits everyone and to maximize benefits as AGI is deployed. " +
			"OpenAI aims to balance commercial interests with human welfare and is essentially a humanitarian company. " +
			"OpenAI has developed advanced models like GPT-3, which perform exceptionally well in natural language processing and other fields.",
	},
	{
		question: "I want to check if there are missing values in the user_payments table in the database.",
		answer: "To check if there are missing values in the user_payments dataset, we will perform the following steps:" +
			"\n\nStep 1: Use the `extract_data` function to load the user_payments table into the current Python environment." +
			"\n\nStep 2: Use the `python_inter` function to execute Python code to check for missing values in the dataset.",
	},
	{
		question: "I want to find a suitable method for imputing missing values in the user_payments dataset.",
		answer: "To find a suitable method for imputing missing values, we need to perform the following three steps:" +
			"\n\nStep 1: Analyze the missing values in the user_payments dataset. By checking the missing rates for each field and observing the distribution of missing values, understand the extent and pattern of missing data." +
			"\n\nStep 2: Determine the imputation strategy. Based on the observations and the nature of specific fields, determine an appropriate imputation strategy, such as using mode, median, mean, or building a model for imputation." +
			"\n\nStep 3: Perform the imputation. Execute the imputation according to the chosen strategy and verify the imputation results.",
	},
}

// DecompositionHistory builds the augmented copy used for task
// decomposition: h without its last message, the four exemplar exchanges,
// then the last message rephrased with the step-count template. h is not
// modified.
func DecompositionHistory(h *conversation.History) (*conversation.History, error) {
	last, ok := h.Last()
	if !ok {
		return nil, ErrNoUserMessage
	}

	aug := h.Copy()
	if _, err := aug.Remove(-1); err != nil {
		return nil, err
	}
	for _, ex := range decompositionExemplars {
		aug.Append(
			provider.Message{Role: provider.RoleUser, Content: DecompositionQuestion(ex.question)},
			provider.Message{Role: provider.RoleAssistant, Content: ex.answer},
		)
	}
	last.Content = DecompositionQuestion(last.Content)
	aug.Append(last)
	return aug, nil
}

func addSuffixes(h *conversation.History) {
	last, ok := h.LastUser()
	if !ok || strings.HasSuffix(last.Content, MarkdownSuffix) {
		return
	}
	h.SetLastUserContent(last.Content + CoTSuffix + MarkdownSuffix)
}

// stripSuffixes removes the developer suffixes from every user message.
func stripSuffixes(h *conversation.History) {
	for i, m := range h.History() {
		if m.Role != provider.RoleUser {
			continue
		}
		cleaned := strings.ReplaceAll(m.Content, MarkdownSuffix, "")
		cleaned = strings.ReplaceAll(cleaned, CoTSuffix, "")
		if cleaned != m.Content {
			_ = h.SetContent(i, cleaned)
		}
	}
}

// RenderCall formats a tool call for human review: SQL and Python
// arguments become fenced code blocks, anything else indented JSON.
func RenderCall(call provider.ToolCall) string {
	var args map[string]any
	if err := json.Unmarshal(call.Arguments, &args); err == nil {
		if code, ok := args["sql_query"].(string); ok && code != "" {
			return fence("sql", code)
		}
		if code, ok := args["py_code"].(string); ok && code != "" {
			return fence("python", code)
		}
		if pretty, err := json.MarshalIndent(args, "", "    "); err == nil {
			return fence("json", string(pretty))
		}
	}
	return fence("json", string(call.Arguments))
}

func fence(lang, code string) string {
	return "```" + lang + "\n" + code + "\n```"
}
