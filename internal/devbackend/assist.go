package devbackend

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/sudo-init-do/bazaar/internal/marketplace"
)

// POST /suggestions/newListing. Suggestions are canned and depend only on
// what the draft is missing.
func (b *Backend) newListingSuggestions(c *gin.Context) {
	var req marketplace.NewListingSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	ja := req.Language == marketplace.LanguageJapanese
	pick := func(en, jp string) string {
		if ja {
			return jp
		}
		return en
	}

	suggestions := make([]string, 0, 4)
	if len([]rune(strings.TrimSpace(req.Title))) < 10 {
		suggestions = append(suggestions, pick(
			"Add the brand and model to the title.",
			"タイトルにブランド名と型番を追加しましょう。"))
	}
	if !strings.ContainsFunc(req.Description, unicode.IsDigit) {
		suggestions = append(suggestions, pick(
			"Mention the size or dimensions.",
			"サイズや寸法を記載しましょう。"))
	}
	switch marketplace.ItemCondition(req.Condition) {
	case marketplace.ConditionNotGood, marketplace.ConditionBad:
		suggestions = append(suggestions, pick(
			"Describe any scratches or defects in detail.",
			"傷や汚れの詳細を記載しましょう。"))
	case "":
		suggestions = append(suggestions, pick(
			"Choose the item condition.",
			"商品の状態を選択しましょう。"))
	}
	suggestions = append(suggestions, pick(
		"Say when and where the item was bought.",
		"購入時期と購入場所を記載しましょう。"))

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// POST /translate. Text is echoed back tagged with the target language;
// text already in the target language comes back unchanged.
func (b *Backend) translate(c *gin.Context) {
	var req marketplace.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.TargetLanguage == "" {
		badRequest(c, "target_language is required")
		return
	}

	detected := detectLanguage(req.Title + req.Description)
	tag := func(s string) string {
		if s == "" || detected == req.TargetLanguage {
			return s
		}
		return "[" + req.TargetLanguage + "] " + s
	}
	c.JSON(http.StatusOK, marketplace.TranslateResponse{
		TranslatedTitle:        tag(req.Title),
		TranslatedDescription:  tag(req.Description),
		DetectedSourceLanguage: detected,
	})
}

func detectLanguage(s string) string {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return "ja"
		}
	}
	return "en"
}
