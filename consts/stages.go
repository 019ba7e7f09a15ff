package consts

const (
	// Collection
	StageDataCollection = "data_collection"

	// First analysis wave
	StageTechnical      = "technical"
	StageFundamental    = "fundamental"
	StageNewsSentiment  = "news_sentiment"
	StageVideoSentiment = "video_sentiment"

	// Fundamental chain
	StagePeer             = "peer"
	StageAnalystConsensus = "analyst_consensus"

	// Deep-dive chain after the join
	StageCashflow    = "cashflow"
	StageLeadership  = "leadership"
	StageSectorMacro = "sector_macro"
	StageGrowth      = "growth"
	StageValuation   = "valuation"

	// Terminal node
	StageSynthesis = "synthesis"
)

// Display names used in rendered reports.
const (
	Display_DataCollection   = "Data Collection"
	Display_Technical        = "Technical Analysis"
	Display_Fundamental      = "Fundamental Analysis"
	Display_NewsSentiment    = "News Sentiment"
	Display_VideoSentiment   = "Video Sentiment"
	Display_Peer             = "Peer Comparison"
	Display_AnalystConsensus = "Analyst Consensus"
	Display_Cashflow         = "Cash Flow"
	Display_Leadership       = "Leadership"
	Display_SectorMacro      = "Sector & Macro"
	Display_Growth           = "Growth"
	Display_Valuation        = "Valuation"
	Display_Synthesis        = "Decision Synthesis"
)

// DisplayName maps a stage identifier to its report heading.
func DisplayName(stage string) string {
	names := map[string]string{
		StageDataCollection:   Display_DataCollection,
		StageTechnical:        Display_Technical,
		StageFundamental:      Display_Fundamental,
		StageNewsSentiment:    Display_NewsSentiment,
		StageVideoSentiment:   Display_VideoSentiment,
		StagePeer:             Display_Peer,
		StageAnalystConsensus: Display_AnalystConsensus,
		StageCashflow:         Display_Cashflow,
		StageLeadership:       Display_Leadership,
		StageSectorMacro:      Display_SectorMacro,
		StageGrowth:           Display_Growth,
		StageValuation:        Display_Valuation,
		StageSynthesis:        Display_Synthesis,
	}
	if n, ok := names[stage]; ok {
		return n
	}
	return stage
}
