package chat

// SystemPrompt seeds every completion request as the first message.
const SystemPrompt = "あなたは親切なAIアシスタントです。ユーザーの質問に簡潔かつ丁寧に答えてください。"

// EmptyCompletionReply is sent when the completion endpoint returns no content.
const EmptyCompletionReply = "申し訳ございません。応答を生成できませんでした。"

// ErrorReply is the fallback sent when any step of reply generation fails.
const ErrorReply = "申し訳ございません。エラーが発生しました。しばらくしてからもう一度お試しください。"
