package llm

import (
	"fmt"
	"strings"
)

// Supported output languages.
const (
	Korean   = "한국어"
	English  = "English"
	Japanese = "日本語"
	Chinese  = "中文"
	German   = "Deutsch"

	DefaultLanguage = Korean
)

// Language holds the localized text used to build a prompt and decorate the
// model's answer.
type Language struct {
	Name string

	// Intro states the return for ticker since date. ret is already formatted.
	Intro        func(ticker, date, ret string) string
	Collected    string
	Caveat       string
	Instructions string
	Disclaimer   string
	Unavailable  string
}

var languages = map[string]Language{
	Korean: {
		Name: Korean,
		Intro: func(ticker, date, ret string) string {
			return fmt.Sprintf("%s에 %s에 투자했다면 오늘까지 수익률은 %s%%입니다.", date, ticker, ret)
		},
		Collected: "수집된 정보:",
		Caveat:    "⚠️ 주의: 제한된 뉴스 정보로 인해 일반적인 투자 분석을 포함합니다.",
		Instructions: "이 종목의 수익률 발생 요인을 한국어로 3-4줄로 분석해주세요. \n" +
			"구체적인 시장 동향, 기업 실적, 또는 섹터 영향을 포함하여 설명해주세요.\n" +
			"반드시 한국어로만 답변해주세요.",
		Disclaimer:  "\n\n※ 제한된 뉴스 데이터로 인한 일반적 분석입니다.",
		Unavailable: "분석 정보가 제한적입니다. 투자 전 추가 리서치를 권합니다.",
	},
	English: {
		Name: English,
		Intro: func(ticker, date, ret string) string {
			return fmt.Sprintf("If you invested in %s on %s, the return would be %s%% until today.", ticker, date, ret)
		},
		Collected: "Collected Information:",
		Caveat:    "⚠️ Note: Limited news data available, general investment analysis included.",
		Instructions: "Please analyze the factors behind this stock's return in English within 3-4 lines.\n" +
			"Include specific market trends, company performance, or sector impacts in your explanation.\n" +
			"Please respond only in English.",
		Disclaimer:  "\n\n※ General analysis due to limited news data.",
		Unavailable: "Limited analysis information available. Additional research recommended before investment.",
	},
	Japanese: {
		Name: Japanese,
		Intro: func(ticker, date, ret string) string {
			return fmt.Sprintf("%sに%sに投資していたら、今日までの収益率は%s%%です。", date, ticker, ret)
		},
		Collected: "収集された情報：",
		Caveat:    "⚠️ 注意：限られたニュース情報のため、一般的な投資分析を含みます。",
		Instructions: "この銘柄の収益率発生要因を日本語で3-4行で分析してください。\n" +
			"具体的な市場動向、企業業績、またはセクター影響を含めて説明してください。\n" +
			"必ず日本語のみで回答してください。",
		Disclaimer:  "\n\n※ 限られたニュースデータによる一般的な分析です。",
		Unavailable: "分析情報が限られています。投資前に追加調査をお勧めします。",
	},
	Chinese: {
		Name: Chinese,
		Intro: func(ticker, date, ret string) string {
			return fmt.Sprintf("如果在%s投资%s，到今天的收益率将是%s%%。", date, ticker, ret)
		},
		Collected: "收集的信息：",
		Caveat:    "⚠️ 注意：由于新闻信息有限，包含一般投资分析。",
		Instructions: "请用中文在3-4行内分析这只股票收益率的产生因素。\n" +
			"请在解释中包含具体的市场趋势、公司业绩或行业影响。\n" +
			"请只用中文回答。",
		Disclaimer:  "\n\n※ 由于新闻数据有限的一般分析。",
		Unavailable: "分析信息有限。建议投资前进行额外研究。",
	},
	German: {
		Name: German,
		Intro: func(ticker, date, ret string) string {
			return fmt.Sprintf("Wenn Sie am %s in %s investiert hätten, wäre die Rendite bis heute %s%%.", date, ticker, ret)
		},
		Collected: "Gesammelte Informationen:",
		Caveat:    "⚠️ Hinweis: Begrenzte Nachrichtendaten verfügbar, allgemeine Investitionsanalyse enthalten.",
		Instructions: "Bitte analysieren Sie die Faktoren hinter der Rendite dieser Aktie auf Deutsch in 3-4 Zeilen.\n" +
			"Beinhalten Sie spezifische Markttrends, Unternehmensleistung oder Branchenauswirkungen in Ihrer Erklärung.\n" +
			"Bitte antworten Sie nur auf Deutsch.",
		Disclaimer:  "\n\n※ Allgemeine Analyse aufgrund begrenzter Nachrichtendaten.",
		Unavailable: "Begrenzte Analyseinformationen verfügbar. Zusätzliche Recherche vor Investition empfohlen.",
	},
}

var aliases = map[string]string{
	"ko": Korean, "korean": Korean,
	"en": English, "english": English,
	"ja": Japanese, "japanese": Japanese,
	"zh": Chinese, "chinese": Chinese,
	"de": German, "german": German, "deutsch": German,
}

// Languages lists the supported language names in display order.
func Languages() []string {
	return []string{Korean, English, Japanese, Chinese, German}
}

// LookupLanguage resolves a language name or alias. ok is false when name is
// not supported, in which case the default language is returned.
func LookupLanguage(name string) (lang Language, ok bool) {
	name = strings.TrimSpace(name)
	if l, found := languages[name]; found {
		return l, true
	}
	if canonical, found := aliases[strings.ToLower(name)]; found {
		return languages[canonical], true
	}
	return languages[DefaultLanguage], false
}

// Disclaimer returns the suffix appended to answers built on limited data.
func Disclaimer(name string) string {
	l, _ := LookupLanguage(name)
	return l.Disclaimer
}

// Unavailable returns the generic message shown when no analysis could be made.
func Unavailable(name string) string {
	l, _ := LookupLanguage(name)
	return l.Unavailable
}
