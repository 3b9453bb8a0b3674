package usecase

import "strings"

// User-facing messages. They are shown in the question's language.
const (
	MsgInvalidQuery   = "⚠️ 適切な医学的な質問を入力してください。"
	MsgNoResults      = "❌ 該当する論文が見つかりませんでした。"
	MsgQueryFailed    = "❌ クエリ生成中にエラーが発生しました: %v"
	MsgSearchFailed   = "❌ 論文検索中にエラーが発生しました。"
	MsgFetchFailed    = "❌ 論文情報を取得できませんでした (PMID: %s)"
	SummaryFailedText = "要約に失敗しました。"
)

func buildQueryPrompt() string {
	return strings.Join([]string{
		"あなたはPubMedの検索クエリを作成する専門家です。",
		"日本語の医学的な質問に対して、PubMedで検索するための英語の検索クエリを作成してください。",
		"検索クエリが作成できない場合は、空文字を返してください。",
		"",
		"【ルール】",
		"1. 回答は検索キーワード（検索式）のみで返してください。説明は不要です。",
		"2. クエリはPubMedの検索構文に従い、論理演算子（AND, OR）を使用してください。",
		`3. 基本形式: (疾患名 OR 同義語) AND (目的) AND (対象) AND ("2020"[PDat] : "3000"[PDat])`,
	}, "\n")
}

func buildSummaryPrompt() string {
	return "PubMedから取得したAbstractです。日本語で、情報量を落とさずに箇条書きで、要約してください。" +
		"箇条書きは、読みやすくするためひとつずつ改行してください。"
}

func buildSummaryInput(abstract string) string {
	return "--- Abstract ---\n" + abstract
}

// isInvalidQuery reports whether the trimmed model output is the in-band
// "no query" signal: nothing at all, or a bare pair of double quotes.
func isInvalidQuery(trimmed string) bool {
	return trimmed == "" || trimmed == `""`
}
