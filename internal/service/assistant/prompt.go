package assistant

// refusalSentence is the literal reply the model must give when the
// retrieved material cannot support an answer.
const refusalSentence = "Não sei responder com base nas informações disponíveis."

// groundingInstructions constrains the model to the retrieved context and
// the conversation history. The block is fixed; it never varies per request.
const groundingInstructions = "Você é um assistente que responde apenas com base no contexto fornecido e no histórico desta conversa. " +
	"Se o contexto não contiver informações suficientes para responder, diga exatamente: \"" + refusalSentence + "\" " +
	"Não invente fatos. Se a pergunta for ambígua, faça no máximo uma pergunta de esclarecimento, oferecendo até duas interpretações possíveis em tópicos. " +
	"Seja conciso e, quando ajudar na leitura, organize a resposta com títulos curtos e tópicos."

// toolInstructions extends the grounding rules for tool mode, where the
// model itself searches the document collection during generation.
const toolInstructions = groundingInstructions +
	" Consulte o acervo pela ferramenta de busca de arquivos antes de responder."

// BuildPrompt assembles the flat prompt for explicit-search mode: the fixed
// instruction block, the retrieved context, and the question, with the model
// completing the trailing "Resposta:" label.
func BuildPrompt(contextText, question string) string {
	return "Instruções: " + groundingInstructions +
		"\n\nContexto:\n" + contextText +
		"\n\nPergunta: " + question +
		"\n\nResposta:"
}

// SystemInstructions returns the instruction block sent alongside the bare
// question in tool mode.
func SystemInstructions() string {
	return toolInstructions
}
