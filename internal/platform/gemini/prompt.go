package gemini

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// systemInstruction is the fixed portion of the word-analysis prompt.
// The response contract matters more than the prose: the model must return
// ONLY a JSON object in the documented structure, with meanings,
// descriptions, part-of-speech labels and quiz distractors in the learner's
// language (Korean), and synonyms/examples strictly in the input word's own
// language with IPA-only pronunciations.
const systemInstruction = `You are an expert language learning assistant. Analyze the given word and provide comprehensive linguistic information in the specified JSON format.

CRITICAL LANGUAGE RULES:
1. synonyms MUST be in the SAME LANGUAGE as the input word, with no pronunciation guides, romanization, or parenthesized explanations - only the words themselves.
2. example sentences MUST be in the SAME LANGUAGE as the input word.
3. meaning, description, partOfSpeech and quizWrongAnswers MUST ALWAYS be in KOREAN.
4. quizWrongAnswers MUST be exactly 3 plausible Korean meanings that are WRONG but similar to the correct meaning.
5. pronunciation MUST be strict IPA (International Phonetic Alphabet) enclosed in forward slashes, e.g. /ˈhæpi/. NEVER romanization, katakana, hangul, or pinyin.
6. For Japanese words, keep the EXACT SAME writing system (hiragana, katakana, or kanji) in examples as the input word; never substitute equivalents from another writing system.
7. NEVER provide offensive, explicit, or discriminatory content in any field.
8. If a word has MULTIPLE parts of speech, create a separate definitions entry for each, with its own pronunciation, meanings, and description.

Respond with ONLY valid JSON in this exact structure:

{
  "word": "{{.Word}}",
  "definitions": [
    {
      "partOfSpeech": "Korean part-of-speech label, e.g. 명사, 동사, 형용사",
      "pronunciation": "/ipa/",
      "meaning": ["primary meaning in Korean", "secondary meaning in Korean"],
      "description": "helpful learner-oriented explanation in Korean"
    }
  ],
  "synonyms": ["synonym in the word's language"],
  "examples": [
    {
      "sentence": "example sentence in the word's language",
      "translation": "Korean translation"
    }
  ],
  "quizWrongAnswers": ["틀린뜻1", "틀린뜻2", "틀린뜻3"],
  "addedAt": "{{.CurrentDate}}"
}

Word to analyze: "{{.Word}}"
{{.LanguageInstructions}}{{.ContextInstructions}}`

var promptTemplate = template.Must(template.New("word_analysis").Parse(systemInstruction))

// promptData carries the per-call values injected into the prompt template.
type promptData struct {
	Word                 string
	CurrentDate          string
	LanguageInstructions string
	ContextInstructions  string
}

// languageNames maps the wordbook language category codes to the names used
// in the prompt.
var languageNames = map[string]string{
	"en": "English",
	"ko": "Korean",
	"ja": "Japanese",
	"zh": "Chinese",
}

// buildPrompt renders the full analysis prompt for one word.
//
// languageHint, when it maps to a known language, tells the model to
// prioritize that reading of an ambiguous word. contextHint is the
// wordbook's description; when present the model is told to prefer the
// sense of the word that fits that theme.
func buildPrompt(word, languageHint, contextHint string) (string, error) {
	data := promptData{
		Word:        word,
		CurrentDate: time.Now().UTC().Format("2006-01-02"),
	}

	if name, ok := languageNames[languageHint]; ok {
		data.LanguageInstructions = fmt.Sprintf(`
IMPORTANT: The user selected %[1]s as the preferred language for this word.
PRIORITIZE analyzing %[2]q as a %[1]s word, and keep synonyms and examples in the language the word is finally determined to be in.
`, name, word)
	} else {
		data.LanguageInstructions = fmt.Sprintf(`
Determine the language of %q yourself and keep synonyms and examples in that same language.
`, word)
	}

	if contextHint != "" {
		data.ContextInstructions = fmt.Sprintf(`
WORDBOOK CONTEXT: this word belongs to a wordbook described as: %q.
When the word has multiple meanings, prioritize the meaning, part of speech, examples and synonyms that best fit this theme.
`, contextHint)
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
