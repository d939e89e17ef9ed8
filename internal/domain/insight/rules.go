package insight

import c "github.com/okian/verdict/internal/domain/criteria"

// Placeholders a rule message may carry. They are replaced with the display
// name of the single highest or lowest catalog criterion.
const (
	TopPlaceholder    = "{top}"
	BottomPlaceholder = "{bottom}"
)

// Thresholds on the 0-10 reference scale.
const (
	mentoringFloor   = 9
	criticalCeiling  = 2
	highMark         = 8
	lowMark          = 4
	imbalanceHighMin = 3
	imbalanceLowMin  = 2
)

func imbalance() Condition {
	return All{
		CountAtLeast{Threshold: highMark, N: imbalanceHighMin},
		CountAtMost{Threshold: lowMark, N: imbalanceLowMin},
	}
}

// IndividualRules is the rule table for individual subjects, in firing order.
func IndividualRules() []Rule {
	return []Rule{
		{
			ID: "individual.authentic-leadership", Polarity: Reinforcing,
			When:    All{AtLeast{c.Leadership, 8}, AtLeast{c.EmotionalIntelligence, 7}, AtLeast{c.Communication, 7}},
			Message: "Demonstrates authentic leadership with strong emotional intelligence and communication.",
		},
		{
			ID: "individual.inclusive-team-player", Polarity: Reinforcing,
			When:    All{AtLeast{c.Collaboration, 8}, AtLeast{c.Communication, 7}},
			Message: "Inclusive team player who communicates openly and builds on the ideas of others.",
		},
		{
			ID: "individual.visionary-thinker", Polarity: Reinforcing,
			When:    All{AtLeast{c.Innovation, 8}, AtLeast{c.StrategicThinking, 7}},
			Message: "Visionary thinker who pairs fresh ideas with clear strategic direction.",
		},
		{
			ID: "individual.grounded-problem-solver", Polarity: Reinforcing,
			When:    All{AtLeast{c.ProblemSolving, 8}, AtLeast{c.DecisionMaking, 7}},
			Message: "Grounded problem solver who turns analysis into timely decisions.",
		},
		{
			ID: "individual.calm-under-change", Polarity: Reinforcing,
			When:    All{AtLeast{c.Adaptability, 8}, AtLeast{c.EmotionalIntelligence, 7}},
			Message: "Adapts to change calmly while staying attuned to how others are coping.",
		},
		{
			ID: "individual.dependable-owner", Polarity: Reinforcing,
			When:    All{AtLeast{c.Accountability, 8}, AtLeast{c.Collaboration, 7}},
			Message: "Owns outcomes and reliably follows through on commitments to the team.",
		},
		{
			ID: "individual.strategic-communicator", Polarity: Reinforcing,
			When:    All{AtLeast{c.StrategicThinking, 8}, AtLeast{c.Communication, 8}},
			Message: "Translates strategy into messages that others can act on.",
		},
		{
			ID: "individual.mentoring-potential", Polarity: Reinforcing,
			When:    TopAtLeast{mentoringFloor},
			Message: TopPlaceholder + " is a standout strength and an area of mentoring potential.",
		},
		{
			ID: "individual.directive-dismissive", Polarity: Cautionary,
			When:    All{AtLeast{c.Leadership, 8}, AtMost{c.EmotionalIntelligence, 5}},
			Message: "Strong leadership drive paired with low emotional intelligence risks a directive or dismissive style.",
		},
		{
			ID: "individual.collaborative-risk", Polarity: Cautionary,
			When:    All{AtLeast{c.Leadership, 7}, AtMost{c.Collaboration, 5}},
			Message: "Leads from the front but under-collaborates; others may feel left out of decisions.",
		},
		{
			ID: "individual.persuasive-insensitive", Polarity: Cautionary,
			When:    All{AtLeast{c.Communication, 8}, AtMost{c.EmotionalIntelligence, 4}},
			Message: "Persuasive communicator who may come across as insensitive to how messages land.",
		},
		{
			ID: "individual.ideas-without-execution", Polarity: Cautionary,
			When:    All{AtLeast{c.Innovation, 8}, AtMost{c.ProblemSolving, 4}},
			Message: "Generates ideas faster than they can be turned into workable solutions.",
		},
		{
			ID: "individual.hasty-decisions", Polarity: Cautionary,
			When:    All{AtLeast{c.DecisionMaking, 8}, AtMost{c.StrategicThinking, 4}},
			Message: "Decides quickly without enough strategic grounding.",
		},
		{
			ID: "individual.accountability-gap", Polarity: Cautionary,
			When:    AtMost{c.Accountability, 3},
			Message: "Low accountability: commitments are at risk of slipping without close follow-up.",
		},
		{
			ID: "individual.resists-change", Polarity: Cautionary,
			When:    All{AtMost{c.Adaptability, 3}, AtMost{c.Innovation, 4}},
			Message: "Struggles with change and new approaches; may resist shifts in direction.",
		},
		{
			ID: "individual.immediate-development", Polarity: Cautionary,
			When:    BottomAtMost{criticalCeiling},
			Message: BottomPlaceholder + " requires immediate development.",
		},
		{
			ID: "individual.uneven-profile", Polarity: Cautionary,
			When:    imbalance(),
			Message: "Uneven performance profile: marked strengths sit alongside significant gaps.",
		},
	}
}

// GroupRules is the rule table for group subjects, in firing order.
func GroupRules() []Rule {
	return []Rule{
		{
			ID: "group.shared-leadership", Polarity: Reinforcing,
			When:    All{AtLeast{c.Leadership, 8}, AtLeast{c.EmotionalIntelligence, 7}, AtLeast{c.Communication, 7}},
			Message: "Leadership is shared authentically; the team pairs emotional awareness with open communication.",
		},
		{
			ID: "group.inclusive-collaboration", Polarity: Reinforcing,
			When:    All{AtLeast{c.Collaboration, 8}, AtLeast{c.Communication, 7}},
			Message: "Inclusive collaboration: members communicate openly and build on each other's contributions.",
		},
		{
			ID: "group.collective-vision", Polarity: Reinforcing,
			When:    All{AtLeast{c.Innovation, 8}, AtLeast{c.StrategicThinking, 7}},
			Message: "The team generates new ideas and aligns them behind a shared strategy.",
		},
		{
			ID: "group.joint-problem-solving", Polarity: Reinforcing,
			When:    All{AtLeast{c.ProblemSolving, 8}, AtLeast{c.DecisionMaking, 7}},
			Message: "The team works problems together and reaches decisions without stalling.",
		},
		{
			ID: "group.resilient-unit", Polarity: Reinforcing,
			When:    All{AtLeast{c.Adaptability, 8}, AtLeast{c.EmotionalIntelligence, 7}},
			Message: "The team absorbs change well and supports members through it.",
		},
		{
			ID: "group.mutual-accountability", Polarity: Reinforcing,
			When:    All{AtLeast{c.Accountability, 8}, AtLeast{c.Collaboration, 7}},
			Message: "Members hold each other accountable while staying collaborative.",
		},
		{
			ID: "group.collective-strength", Polarity: Reinforcing,
			When:    TopAtLeast{mentoringFloor},
			Message: TopPlaceholder + " is a collective strength other teams could learn from.",
		},
		{
			ID: "group.dominant-voice", Polarity: Cautionary,
			When:    All{AtLeast{c.Leadership, 8}, AtMost{c.EmotionalIntelligence, 5}},
			Message: "Dominant leadership with low emotional awareness may silence quieter members.",
		},
		{
			ID: "group.exclusion-risk", Polarity: Cautionary,
			When:    All{AtLeast{c.Leadership, 7}, AtMost{c.Collaboration, 5}},
			Message: "Exclusion risk: strong leadership with weak collaboration concentrates decisions in a few members.",
		},
		{
			ID: "group.collaboration-breakdown", Polarity: Cautionary,
			When:    AtMost{c.Collaboration, 3},
			Message: "Fundamental breakdown in collaboration: members are working in parallel rather than together.",
		},
		{
			ID: "group.friction", Polarity: Cautionary,
			When:    All{AtLeast{c.Communication, 8}, AtMost{c.EmotionalIntelligence, 4}},
			Message: "Communication is frequent but insensitive; friction between members is likely.",
		},
		{
			ID: "group.groupthink", Polarity: Cautionary,
			When:    All{AtLeast{c.DecisionMaking, 8}, AtMost{c.Innovation, 4}},
			Message: "Fast consensus with little new thinking points to a risk of groupthink.",
		},
		{
			ID: "group.diffused-responsibility", Polarity: Cautionary,
			When:    AtMost{c.Accountability, 3},
			Message: "Diffused responsibility: nobody clearly owns the team's outcomes.",
		},
		{
			ID: "group.change-fatigue", Polarity: Cautionary,
			When:    AtMost{c.Adaptability, 3},
			Message: "The team struggles to regroup when plans change.",
		},
		{
			ID: "group.critical-weakness", Polarity: Cautionary,
			When:    BottomAtMost{criticalCeiling},
			Message: BottomPlaceholder + " is a critical team weakness requiring immediate development.",
		},
		{
			ID: "group.uneven-profile", Polarity: Cautionary,
			When:    imbalance(),
			Message: "Uneven team profile: pronounced collective strengths mask significant gaps.",
		},
	}
}
