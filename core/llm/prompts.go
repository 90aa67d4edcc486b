package llm

import "fmt"

// languagePrompts holds the transcript-grounded system prompt per supported
// transcript language. Unknown languages fall back to English.
var languagePrompts = map[string]string{
	"en": "You are a precise assistant answering questions strictly based on the content of the video transcript provided. " +
		"If the answer is not clearly stated in the transcript, say you cannot find the answer. " +
		"Do not guess or add unrelated information. Only use the transcript to answer. Stay on-topic, concise, and evidence-based.",
	"ar": "أنت مساعد دقيق تجيب على الأسئلة فقط بناءً على محتوى نص الفيديو. " +
		"إذا لم يكن الجواب مذكورًا بوضوح في النص، قل أنك لا تستطيع العثور عليه. " +
		"لا تخمن أو تضف معلومات غير متعلقة. استخدم النص فقط للإجابة وكن دقيقًا.",
	"es": "Eres un asistente preciso que responde estrictamente con base en el contenido del video. " +
		"Si la respuesta no está claramente indicada en la transcripción, di que no puedes encontrarla. " +
		"No inventes información ni salgas del tema. Usa solo la transcripción.",
	"it": "Sei un assistente preciso che risponde solo in base al contenuto del video. " +
		"Se la risposta non è chiaramente indicata nella trascrizione, dichiara di non poterla trovare. " +
		"Non indovinare né aggiungere informazioni non pertinenti. Usa solo la trascrizione.",
	"sv": "Du är en noggrann assistent som bara svarar baserat på innehållet i videons transkript. " +
		"Om svaret inte tydligt framgår, säg att du inte kan hitta det. Gissa inte och håll dig till ämnet.",
}

// SystemPrompt returns the transcript-grounded system prompt for a language.
func SystemPrompt(lang string) string {
	if prompt, ok := languagePrompts[lang]; ok {
		return prompt
	}
	return languagePrompts["en"]
}

// AnswerPrompt builds the user message for a question over retrieved
// transcript context.
func AnswerPrompt(query, contextText string) string {
	return fmt.Sprintf("%s\n\nTranscript:\n%s", query, contextText)
}

var summaryStyles = map[string]string{
	"short":  "a concise summary of 2-3 sentences",
	"medium": "a summary of one or two paragraphs covering the main points",
	"long":   "a detailed summary covering all major topics and their key details",
}

// SummaryPrompt builds the user message for summarizing transcript content
// at the requested length ("short", "medium", or "long").
func SummaryPrompt(content, length string) string {
	style, ok := summaryStyles[length]
	if !ok {
		style = summaryStyles["medium"]
	}
	return fmt.Sprintf("Write %s of the following video transcript.\n\nTranscript:\n%s", style, content)
}
