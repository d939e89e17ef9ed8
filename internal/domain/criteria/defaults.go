package criteria

// Criterion IDs shared by the built-in individual and group catalogs. The
// insight rule tables refer to these.
const (
	Leadership            = "leadership"
	Communication         = "communication"
	Collaboration         = "collaboration"
	EmotionalIntelligence = "emotionalIntelligence"
	StrategicThinking     = "strategicThinking"
	Innovation            = "innovation"
	ProblemSolving        = "problemSolving"
	Adaptability          = "adaptability"
	DecisionMaking        = "decisionMaking"
	Accountability        = "accountability"
)

const (
	individualMaxValue = 10
	groupMaxValue      = 20
)

// DefaultIndividual is the built-in ten-criterion catalog scored 0-10.
func DefaultIndividual() *Catalog {
	return mustCatalog(Individual, []Criterion{
		{ID: Leadership, DisplayName: "Leadership", MaxValue: individualMaxValue},
		{ID: Communication, DisplayName: "Communication", MaxValue: individualMaxValue},
		{ID: Collaboration, DisplayName: "Collaboration", MaxValue: individualMaxValue},
		{ID: EmotionalIntelligence, DisplayName: "Emotional Intelligence", MaxValue: individualMaxValue},
		{ID: StrategicThinking, DisplayName: "Strategic Thinking", MaxValue: individualMaxValue},
		{ID: Innovation, DisplayName: "Innovation", MaxValue: individualMaxValue},
		{ID: ProblemSolving, DisplayName: "Problem Solving", MaxValue: individualMaxValue},
		{ID: Adaptability, DisplayName: "Adaptability", MaxValue: individualMaxValue},
		{ID: DecisionMaking, DisplayName: "Decision Making", MaxValue: individualMaxValue},
		{ID: Accountability, DisplayName: "Accountability", MaxValue: individualMaxValue},
	})
}

// DefaultGroup is the built-in ten-criterion team catalog scored 0-20.
func DefaultGroup() *Catalog {
	return mustCatalog(Group, []Criterion{
		{ID: Leadership, DisplayName: "Shared Leadership", MaxValue: groupMaxValue},
		{ID: Communication, DisplayName: "Team Communication", MaxValue: groupMaxValue},
		{ID: Collaboration, DisplayName: "Collaboration", MaxValue: groupMaxValue},
		{ID: EmotionalIntelligence, DisplayName: "Collective Emotional Intelligence", MaxValue: groupMaxValue},
		{ID: StrategicThinking, DisplayName: "Strategic Alignment", MaxValue: groupMaxValue},
		{ID: Innovation, DisplayName: "Collective Innovation", MaxValue: groupMaxValue},
		{ID: ProblemSolving, DisplayName: "Joint Problem Solving", MaxValue: groupMaxValue},
		{ID: Adaptability, DisplayName: "Adaptability", MaxValue: groupMaxValue},
		{ID: DecisionMaking, DisplayName: "Decision Making", MaxValue: groupMaxValue},
		{ID: Accountability, DisplayName: "Mutual Accountability", MaxValue: groupMaxValue},
	})
}

// Defaults returns both built-in catalogs.
func Defaults() Set {
	return Set{Individual: DefaultIndividual(), Group: DefaultGroup()}
}

func mustCatalog(kind Kind, list []Criterion) *Catalog {
	c, err := NewCatalog(kind, list)
	if err != nil {
		panic(err)
	}
	return c
}
