package questionnaire

import "github.com/carebridge/intakepipe/internal/models"

// Clinical domain tags for catalog items.
const (
	DomainAnhedonia        = "anhedonia"
	DomainDepressedMood    = "depressed_mood"
	DomainSleep            = "sleep"
	DomainFatigue          = "fatigue"
	DomainAppetite         = "appetite"
	DomainSelfWorth        = "self_worth"
	DomainConcentration    = "concentration"
	DomainPsychomotor      = "psychomotor"
	DomainSuicidalIdeation = "suicidal_ideation"
	DomainNervousness      = "nervousness"
	DomainWorryControl     = "worry_control"
	DomainExcessiveWorry   = "excessive_worry"
	DomainRestlessness     = "restlessness"
	DomainIrritability     = "irritability"
	DomainFearfulness      = "fearfulness"
)

// phqAItems lists the 9 PHQ-A items in fixed order. StandardText is the
// 13-18 phrasing; SimplifiedText is the 5-12 phrasing read to the parent
// about a younger child. Both ask about the last two weeks.
var phqAItems = []Question{
	{
		ID: "phq_a_1", Instrument: models.InstrumentPHQA, ItemNumber: 1, Domain: DomainAnhedonia,
		StandardText:   "Over the last two weeks, how often has your child had little interest or pleasure in doing things?",
		SimplifiedText: "In the last two weeks, how often did your child not want to play or do fun things?",
	},
	{
		ID: "phq_a_2", Instrument: models.InstrumentPHQA, ItemNumber: 2, Domain: DomainDepressedMood,
		StandardText:   "Over the last two weeks, how often has your child felt down, depressed, irritable, or hopeless?",
		SimplifiedText: "In the last two weeks, how often did your child seem sad, grumpy, or unhappy?",
	},
	{
		ID: "phq_a_3", Instrument: models.InstrumentPHQA, ItemNumber: 3, Domain: DomainSleep,
		StandardText:   "Over the last two weeks, how often has your child had trouble falling asleep, staying asleep, or sleeping too much?",
		SimplifiedText: "In the last two weeks, how often did your child have trouble sleeping, or sleep much more than usual?",
	},
	{
		ID: "phq_a_4", Instrument: models.InstrumentPHQA, ItemNumber: 4, Domain: DomainFatigue,
		StandardText:   "Over the last two weeks, how often has your child felt tired or had little energy?",
		SimplifiedText: "In the last two weeks, how often did your child seem very tired or low on energy?",
	},
	{
		ID: "phq_a_5", Instrument: models.InstrumentPHQA, ItemNumber: 5, Domain: DomainAppetite,
		StandardText:   "Over the last two weeks, how often has your child had a poor appetite or been overeating?",
		SimplifiedText: "In the last two weeks, how often did your child eat much less or much more than usual?",
	},
	{
		ID: "phq_a_6", Instrument: models.InstrumentPHQA, ItemNumber: 6, Domain: DomainSelfWorth,
		StandardText:   "Over the last two weeks, how often has your child felt bad about themselves, or that they are a failure, or have let themselves or the family down?",
		SimplifiedText: "In the last two weeks, how often did your child say bad things about themselves, like they can't do anything right?",
	},
	{
		ID: "phq_a_7", Instrument: models.InstrumentPHQA, ItemNumber: 7, Domain: DomainConcentration,
		StandardText:   "Over the last two weeks, how often has your child had trouble concentrating on things like schoolwork, reading, or watching TV?",
		SimplifiedText: "In the last two weeks, how often did your child have trouble paying attention to school, stories, or shows?",
	},
	{
		ID: "phq_a_8", Instrument: models.InstrumentPHQA, ItemNumber: 8, Domain: DomainPsychomotor,
		StandardText:   "Over the last two weeks, how often has your child moved or spoken so slowly that others noticed, or been so fidgety or restless that they moved around much more than usual?",
		SimplifiedText: "In the last two weeks, how often did your child move or talk much more slowly than usual, or seem unusually fidgety and restless?",
	},
	{
		ID: "phq_a_9", Instrument: models.InstrumentPHQA, ItemNumber: 9, Domain: DomainSuicidalIdeation,
		StandardText:   "Over the last two weeks, how often has your child had thoughts that they would be better off dead, or of hurting themselves in some way?",
		SimplifiedText: "In the last two weeks, how often did your child talk about hurting themselves or not wanting to be here anymore?",
	},
}

// gad7Items lists the 7 GAD-7 items in fixed order.
var gad7Items = []Question{
	{
		ID: "gad_7_1", Instrument: models.InstrumentGAD7, ItemNumber: 1, Domain: DomainNervousness,
		StandardText:   "Over the last two weeks, how often has your child felt nervous, anxious, or on edge?",
		SimplifiedText: "In the last two weeks, how often did your child seem nervous or scared about things?",
	},
	{
		ID: "gad_7_2", Instrument: models.InstrumentGAD7, ItemNumber: 2, Domain: DomainWorryControl,
		StandardText:   "Over the last two weeks, how often has your child not been able to stop or control worrying?",
		SimplifiedText: "In the last two weeks, how often did your child keep worrying even when you tried to help them stop?",
	},
	{
		ID: "gad_7_3", Instrument: models.InstrumentGAD7, ItemNumber: 3, Domain: DomainExcessiveWorry,
		StandardText:   "Over the last two weeks, how often has your child worried too much about different things?",
		SimplifiedText: "In the last two weeks, how often did your child worry a lot about lots of different things?",
	},
	{
		ID: "gad_7_4", Instrument: models.InstrumentGAD7, ItemNumber: 4, Domain: DomainRestlessness,
		StandardText:   "Over the last two weeks, how often has your child had trouble relaxing?",
		SimplifiedText: "In the last two weeks, how often did your child have a hard time calming down?",
	},
	{
		ID: "gad_7_5", Instrument: models.InstrumentGAD7, ItemNumber: 5, Domain: DomainRestlessness,
		StandardText:   "Over the last two weeks, how often has your child been so restless that it is hard for them to sit still?",
		SimplifiedText: "In the last two weeks, how often was your child so wiggly or restless they couldn't sit still?",
	},
	{
		ID: "gad_7_6", Instrument: models.InstrumentGAD7, ItemNumber: 6, Domain: DomainIrritability,
		StandardText:   "Over the last two weeks, how often has your child become easily annoyed or irritable?",
		SimplifiedText: "In the last two weeks, how often did your child get upset or annoyed very easily?",
	},
	{
		ID: "gad_7_7", Instrument: models.InstrumentGAD7, ItemNumber: 7, Domain: DomainFearfulness,
		StandardText:   "Over the last two weeks, how often has your child felt afraid as if something awful might happen?",
		SimplifiedText: "In the last two weeks, how often did your child seem scared that something bad was going to happen?",
	},
}
