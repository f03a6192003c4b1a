package ai

import (
	"fmt"
	"strings"
)

const (
	placeholderArea           = "Não especificada"
	placeholderDifficulty     = "intermediario"
	placeholderCompanyContext = "Não fornecido"
	placeholderObjectives     = "Resolver o problema de forma prática e viável"
	placeholderRequirements   = "Não especificados"
)

const responseSchemaTemplate = `{
  "pontuacao": <número entre 0-100>,
  "status_recomendado": "<aprovada|reprovada|revisao>",
  "feedback": "<análise geral em 2-3 parágrafos>",
  "pontos_fortes": [
    "<ponto forte 1>",
    "<ponto forte 2>",
    "<ponto forte 3>"
  ],
  "pontos_melhoria": [
    "<melhoria 1>",
    "<melhoria 2>",
    "<melhoria 3>"
  ],
  "criterios": {
    "adequacao_problema": <0-30>,
    "qualidade_tecnica": <0-25>,
    "criatividade": <0-20>,
    "clareza": <0-15>,
    "viabilidade": <0-10>
  },
  "recomendacoes_especificas": [
    "<recomendação prática 1>",
    "<recomendação prática 2>"
  ]
}`

const compactSchemaTemplate = `{
  "pontuacao": <0-100>,
  "status_recomendado": "<aprovada|reprovada|revisao>",
  "feedback": "<análise em 2 parágrafos>",
  "pontos_fortes": ["<ponto 1>", "<ponto 2>", "<ponto 3>"],
  "pontos_melhoria": ["<melhoria 1>", "<melhoria 2>"],
  "criterios": {
    "adequacao_problema": <0-30>,
    "qualidade_tecnica": <0-25>,
    "criatividade": <0-20>,
    "clareza": <0-15>,
    "viabilidade": <0-10>
  },
  "recomendacoes_especificas": ["<recomendação 1>", "<recomendação 2>"]
}`

type rubricSection struct {
	title     string
	key       string
	questions []string
}

var rubric = []rubricSection{
	{
		title: "ADEQUAÇÃO AO PROBLEMA",
		key:   CriterionProblemFit,
		questions: []string{
			"A solução resolve o problema proposto?",
			"Atende aos requisitos e objetivos?",
			"É viável na prática?",
		},
	},
	{
		title: "QUALIDADE TÉCNICA",
		key:   CriterionTechnicalQuality,
		questions: []string{
			"Está tecnicamente sólida?",
			"Usa boas práticas?",
			"É bem estruturada?",
		},
	},
	{
		title: "CRIATIVIDADE E INOVAÇÃO",
		key:   CriterionCreativity,
		questions: []string{
			"Apresenta abordagem criativa?",
			"Traz ideias inovadoras?",
			"Vai além do básico?",
		},
	},
	{
		title: "CLAREZA E APRESENTAÇÃO",
		key:   CriterionClarity,
		questions: []string{
			"Explicação clara e compreensível?",
			"Bem organizada?",
			"Fácil de entender?",
		},
	},
	{
		title: "VIABILIDADE DE IMPLEMENTAÇÃO",
		key:   CriterionFeasibility,
		questions: []string{
			"Pode ser implementada?",
			"É prática e realista?",
			"Considera recursos disponíveis?",
		},
	},
}

// BuildPrompt renders the prompt for the requested mode.
func BuildPrompt(mode PromptMode, problem ProblemContext, solution string) string {
	if mode == PromptModeSimplified {
		return BuildSimplifiedPrompt(problem.Title, problem.Description, solution)
	}
	return BuildAnalysisPrompt(problem, solution)
}

// BuildAnalysisPrompt renders the full evaluation prompt for a solution.
func BuildAnalysisPrompt(problem ProblemContext, solution string) string {
	builder := strings.Builder{}

	builder.WriteString("Você é um avaliador técnico especializado da plataforma NERUS, responsável por avaliar soluções de estudantes angolanos para problemas reais de empresas.\n\n")

	builder.WriteString("## CONTEXTO DO PROBLEMA\n\n")
	fmt.Fprintf(&builder, "**Título:** %s\n\n", problem.Title)
	fmt.Fprintf(&builder, "**Descrição do Problema:**\n%s\n\n", problem.Description)
	fmt.Fprintf(&builder, "**Área:** %s\n\n", orDefault(problem.Area, placeholderArea))
	fmt.Fprintf(&builder, "**Nível de Dificuldade:** %s\n\n", orDefault(problem.Difficulty, placeholderDifficulty))
	fmt.Fprintf(&builder, "**Contexto da Empresa:**\n%s\n\n", orDefault(problem.CompanyContext, placeholderCompanyContext))
	fmt.Fprintf(&builder, "**Objetivos Esperados:**\n%s\n\n", orDefault(problem.Objectives, placeholderObjectives))
	fmt.Fprintf(&builder, "**Requisitos Técnicos:**\n%s\n\n", orDefault(problem.Requirements, placeholderRequirements))
	builder.WriteString("---\n\n")

	builder.WriteString("## SOLUÇÃO SUBMETIDA PELO ESTUDANTE\n\n")
	builder.WriteString(solution)
	builder.WriteString("\n\n---\n\n")

	builder.WriteString("## SUA TAREFA\n\n")
	builder.WriteString("Analise a solução submetida de forma justa, construtiva e educativa. Lembre-se que o objetivo é EDUCAR e CAPACITAR estudantes, não apenas julgar.\n\n")
	builder.WriteString("Avalie considerando:\n\n")
	for i, section := range rubric {
		fmt.Fprintf(&builder, "%d. **%s (%d pontos)**\n", i+1, section.title, int(CriterionMax[section.key]))
		for _, question := range section.questions {
			fmt.Fprintf(&builder, "   - %s\n", question)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("---\n\n")

	builder.WriteString("## INSTRUÇÕES CRÍTICAS\n\n")
	builder.WriteString("**RESPONDA APENAS COM UM JSON VÁLIDO. NÃO INCLUA MARKDOWN, BACKTICKS OU QUALQUER TEXTO FORA DO JSON.**\n\n")
	builder.WriteString("O JSON deve ter EXATAMENTE esta estrutura:\n\n")
	builder.WriteString(responseSchemaTemplate)
	builder.WriteString("\n\n")

	builder.WriteString("## CRITÉRIOS DE APROVAÇÃO\n\n")
	builder.WriteString("- **APROVADA:** Pontuação >= 60 (solução boa, viável e atende requisitos)\n")
	builder.WriteString("- **REVISÃO:** Pontuação 40-59 (tem potencial mas precisa melhorias)\n")
	builder.WriteString("- **REPROVADA:** Pontuação < 40 (não atende requisitos mínimos)\n\n")

	builder.WriteString("## IMPORTANTE\n\n")
	builder.WriteString("- Seja CONSTRUTIVO e EDUCATIVO no feedback\n")
	builder.WriteString("- Destaque pontos fortes mesmo em soluções fracas\n")
	builder.WriteString("- Dê recomendações PRÁTICAS e ACIONÁVEIS\n")
	builder.WriteString("- Considere o contexto angolano e recursos disponíveis\n")
	builder.WriteString("- Incentive o aprendizado contínuo\n")
	builder.WriteString("- NÃO seja excessivamente crítico ou desmotivador\n")
	builder.WriteString("- NÃO use linguagem técnica demais sem explicar\n\n")

	builder.WriteString("RESPONDA AGORA APENAS COM O JSON (SEM MARKDOWN):")
	return builder.String()
}

// BuildSimplifiedPrompt renders the short prompt used when little problem context is known.
func BuildSimplifiedPrompt(title, description, solution string) string {
	builder := strings.Builder{}
	builder.WriteString("Avalie esta solução de estudante:\n\n")
	fmt.Fprintf(&builder, "PROBLEMA: %s\n%s\n\n", title, description)
	fmt.Fprintf(&builder, "SOLUÇÃO:\n%s\n\n", solution)
	builder.WriteString("Responda APENAS com JSON válido (sem markdown):\n\n")
	builder.WriteString(compactSchemaTemplate)
	builder.WriteString("\n\nCritérios: >=60 aprovada, 40-59 revisao, <40 reprovada.\n")
	builder.WriteString("Seja construtivo e educativo.")
	return builder.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func evaluatorSystemPrompt() string {
	return "Você é um avaliador técnico especializado que analisa soluções de estudantes. Responda APENAS com JSON válido, sem markdown."
}
