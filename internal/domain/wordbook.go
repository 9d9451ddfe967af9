package domain

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// Tags applied to word records by the pipeline.
const (
	TagAIGenerated    = "ai_generated"
	TagFailedAnalysis = "failed_analysis"
	TagWorkerFallback = "worker_fallback"
)

// Definition is one part-of-speech entry for an analyzed word.
type Definition struct {
	PartOfSpeech  string   `json:"partOfSpeech"`
	Pronunciation string   `json:"pronunciation,omitempty"`
	Meaning       []string `json:"meaning"`
	Description   string   `json:"description,omitempty"`
}

// Example is an example sentence with its translation.
type Example struct {
	Sentence    string `json:"sentence"`
	Translation string `json:"translation,omitempty"`
}

// WordRecord is the structured result of analyzing a single word, in the
// shape the downstream wordbook application stores.
type WordRecord struct {
	WordID             string       `json:"wordId"`
	Word               string       `json:"word"`
	Lang               string       `json:"lang,omitempty"`
	Meaning            string       `json:"meaning"`
	Definitions        []Definition `json:"definitions"`
	Example            string       `json:"example,omitempty"`
	ExampleTranslation string       `json:"exampleTranslation,omitempty"`
	Examples           []Example    `json:"examples,omitempty"`
	Synonyms           []string     `json:"synonyms,omitempty"`
	Antonyms           []string     `json:"antonyms,omitempty"`
	Tags               []string     `json:"tags,omitempty"`
	QuizWrongAnswers   []string     `json:"quizWrongAnswers,omitempty"`
	AddedAt            string       `json:"addedAt,omitempty"`
}

// NewFallbackWordRecord synthesizes a placeholder record for a word whose
// analysis exhausted its retries. The word still occupies a slot in the
// output; the tags mark it for later manual reanalysis.
func NewFallbackWordRecord(word, lang, reason string) WordRecord {
	now := time.Now().UTC().Format(time.RFC3339)
	return WordRecord{
		WordID:  uuid.New().String(),
		Word:    word,
		Lang:    lang,
		Meaning: "analysis failed: " + reason,
		Definitions: []Definition{
			{
				PartOfSpeech: "unclassified",
				Meaning:      []string{"analysis failed"},
				Description:  "automatic analysis failed; edit this entry manually. Error: " + reason,
			},
		},
		Tags:    []string{TagFailedAnalysis, TagWorkerFallback},
		AddedAt: now,
	}
}

// Language identifies the wordbook's language.
type Language struct {
	Category string `json:"category,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Wordbook is the finished artifact handed to the downstream application.
// The downstream system assigns the durable identifier on save and reports
// it back through the finalize endpoint.
type Wordbook struct {
	WordbookID     string       `json:"wordbookId"`
	WordbookName   string       `json:"wordbookName"`
	FolderID       string       `json:"folderId"`
	FolderName     string       `json:"folderName"`
	Language       Language     `json:"language"`
	Description    string       `json:"description"`
	CoverStyle     string       `json:"coverStyle"`
	DownloadCounts int          `json:"download_counts"`
	Words          []WordRecord `json:"words"`
	WordCount      int          `json:"wordCount"`
	IsDefault      bool         `json:"isDefault"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// NewWordbook assembles the artifact for a completed job.
func NewWordbook(job *Job, words []WordRecord) *Wordbook {
	now := time.Now().UTC()
	return &Wordbook{
		WordbookID:   uuid.New().String(),
		WordbookName: job.Data.WordbookName,
		FolderID:     uuid.New().String(),
		FolderName:   "default",
		Language: Language{
			Category: job.Data.LanguageCategory,
			Label:    job.Data.LanguageLabel,
		},
		Description: job.Data.Description,
		CoverStyle:  CoverStyleFor(job.JobID),
		Words:       words,
		WordCount:   len(words),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

var coverDirections = []string{
	"to top", "to top right", "to right", "to bottom right",
	"to bottom", "to bottom left", "to left", "to top left",
}

var coverPalettes = [][2]string{
	{"#ff9a9e", "#fad0c4"}, {"#a18cd1", "#fbc2eb"}, {"#f6d365", "#fda085"},
	{"#84fab0", "#8fd3f4"}, {"#a6c0fe", "#f68084"}, {"#fccb90", "#d57eeb"},
	{"#e0c3fc", "#8ec5fc"}, {"#f093fb", "#f5576c"}, {"#4facfe", "#00f2fe"},
	{"#43e97b", "#38f9d7"}, {"#fa709a", "#fee140"}, {"#6a11cb", "#2575fc"},
}

// CoverStyleFor derives a CSS gradient from the seed string. The same seed
// always yields the same gradient, while different seeds spread across the
// direction and palette tables.
func CoverStyleFor(seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum32()

	direction := coverDirections[sum%uint32(len(coverDirections))]
	palette := coverPalettes[(sum/uint32(len(coverDirections)))%uint32(len(coverPalettes))]
	return fmt.Sprintf("linear-gradient(%s, %s, %s)", direction, palette[0], palette[1])
}
