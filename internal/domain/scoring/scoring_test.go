package scoring_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregate(t *testing.T) {
	Convey("Given the default individual catalog", t, func() {
		catalog := criteria.DefaultIndividual()

		Convey("When the vector is empty", func() {
			s := scoring.Aggregate(nil, catalog)

			Convey("Then every criterion contributes 0", func() {
				So(s.Total, ShouldEqual, 0)
				So(s.MaxTotal, ShouldEqual, 100)
				So(s.CompletionPct, ShouldEqual, 0)
			})
		})

		Convey("When the vector is partial", func() {
			s := scoring.Aggregate(scoring.Vector{criteria.Leadership: 8, criteria.EmotionalIntelligence: 4}, catalog)

			Convey("Then omitted keys contribute 0", func() {
				So(s.Total, ShouldEqual, 12)
				So(s.CompletionPct, ShouldEqual, 12)
			})
		})

		Convey("When the vector carries negatives, NaN and unknown ids", func() {
			v := scoring.Vector{
				criteria.Leadership:    -3,
				criteria.Communication: math.NaN(),
				criteria.Innovation:    6,
				"charisma":             10,
			}
			s := scoring.Aggregate(v, catalog)

			Convey("Then negatives and NaN clamp to 0 and unknown ids are ignored", func() {
				So(s.Total, ShouldEqual, 6)
			})
		})

		Convey("When a value exceeds its maximum", func() {
			v := scoring.Vector{}
			for _, id := range catalog.IDs() {
				v[id] = 15
			}
			s := scoring.Aggregate(v, catalog)

			Convey("Then the total is taken as given but completion clamps to 100", func() {
				So(s.Total, ShouldEqual, 150)
				So(s.CompletionPct, ShouldEqual, 100)
			})
		})

		Convey("Then the total equals the literal sum of clamped values for many vectors", func() {
			for seed := 0; seed < 50; seed++ {
				v := scoring.Vector{}
				var want float64
				for i, id := range catalog.IDs() {
					val := float64((seed*7+i*3)%13) - 2
					if (seed+i)%4 == 0 {
						continue
					}
					v[id] = val
					want += math.Max(val, 0)
				}
				So(scoring.Aggregate(v, catalog).Total, ShouldEqual, want)
			}
		})
	})
}

func TestPercent(t *testing.T) {
	Convey("Given percent edge cases", t, func() {
		So(scoring.Percent(5, 0), ShouldEqual, 0)
		So(scoring.Percent(5, -10), ShouldEqual, 0)
		So(scoring.Percent(-5, 10), ShouldEqual, 0)
		So(scoring.Percent(50, 200), ShouldEqual, 25)
	})
}

func TestClassify(t *testing.T) {
	Convey("Given the band thresholds", t, func() {
		Convey("Then lower bounds are inclusive", func() {
			So(scoring.Classify(80, 100), ShouldEqual, scoring.Exceptional)
			So(scoring.Classify(79.999, 100), ShouldEqual, scoring.Strong)
			So(scoring.Classify(60, 100), ShouldEqual, scoring.Strong)
			So(scoring.Classify(59.9, 100), ShouldEqual, scoring.Developing)
			So(scoring.Classify(40, 100), ShouldEqual, scoring.Developing)
			So(scoring.Classify(39.9, 100), ShouldEqual, scoring.Limited)
			So(scoring.Classify(0, 100), ShouldEqual, scoring.Limited)
			So(scoring.Classify(100, 100), ShouldEqual, scoring.Exceptional)
		})

		Convey("Then thresholds are relative to the maximum", func() {
			So(scoring.Classify(160, 200), ShouldEqual, scoring.Exceptional)
			So(scoring.Classify(119, 200), ShouldEqual, scoring.Developing)
		})

		Convey("Then a zero or negative maximum classifies as Limited", func() {
			So(scoring.Classify(50, 0), ShouldEqual, scoring.Limited)
			So(scoring.Classify(50, -1), ShouldEqual, scoring.Limited)
		})

		Convey("Then increasing the total never lowers the band and no gaps exist", func() {
			for _, maxTotal := range []float64{10, 100, 200, 37} {
				prev := scoring.Limited
				seen := map[scoring.Band]bool{}
				for i := 0; i <= 1000; i++ {
					total := maxTotal * float64(i) / 1000
					b := scoring.Classify(total, maxTotal)
					So(b, ShouldBeGreaterThanOrEqualTo, prev)
					prev = b
					seen[b] = true
				}
				So(len(seen), ShouldEqual, 4)
			}
		})
	})
}

func TestBandText(t *testing.T) {
	Convey("Given band labels", t, func() {
		Convey("When marshalled to JSON", func() {
			data, err := json.Marshal(map[string]scoring.Band{"band": scoring.Strong})
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `{"band":"Strong"}`)
		})

		Convey("When parsed back", func() {
			var out struct {
				Band scoring.Band `json:"band"`
			}
			So(json.Unmarshal([]byte(`{"band":"exceptional"}`), &out), ShouldBeNil)
			So(out.Band, ShouldEqual, scoring.Exceptional)
		})

		Convey("When the label is unknown", func() {
			_, err := scoring.ParseBand("Stellar")
			So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
			So(scoring.Band(9).String(), ShouldEqual, "Band(9)")
		})
	})
}

func TestValidateVector(t *testing.T) {
	Convey("Given the default group catalog", t, func() {
		catalog := criteria.DefaultGroup()

		Convey("When every value is within range", func() {
			err := scoring.ValidateVector(scoring.Vector{criteria.Leadership: 20, criteria.Communication: 0}, catalog)
			So(err, ShouldBeNil)
		})

		Convey("When a value exceeds the group maximum", func() {
			err := scoring.ValidateVector(scoring.Vector{criteria.Leadership: 21}, catalog)

			Convey("Then a ValidationError names the criterion", func() {
				var verr *scoring.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Field, ShouldEqual, criteria.Leadership)
				So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When an id is unknown or a value negative or NaN", func() {
			So(scoring.ValidateVector(scoring.Vector{"charisma": 1}, catalog), ShouldNotBeNil)
			So(scoring.ValidateVector(scoring.Vector{criteria.Innovation: -1}, catalog), ShouldNotBeNil)
			So(scoring.ValidateVector(scoring.Vector{criteria.Innovation: math.NaN()}, catalog), ShouldNotBeNil)
		})
	})
}

func TestVectorHelpers(t *testing.T) {
	Convey("Given a vector", t, func() {
		v := scoring.Vector{criteria.Leadership: 8}

		Convey("Then Clone is independent", func() {
			c := v.Clone()
			c[criteria.Leadership] = 1
			So(v[criteria.Leadership], ShouldEqual, 8)
			So(scoring.Vector(nil).Clone(), ShouldNotBeNil)
		})

		Convey("Then Equal compares keys and values exactly", func() {
			So(v.Equal(scoring.Vector{criteria.Leadership: 8}), ShouldBeTrue)
			So(v.Equal(scoring.Vector{criteria.Leadership: 8, criteria.Innovation: 0}), ShouldBeFalse)
			So(v.Equal(scoring.Vector{criteria.Leadership: 7}), ShouldBeFalse)
		})

		Convey("Then IsComplete requires every catalog id", func() {
			catalog := criteria.DefaultIndividual()
			So(scoring.IsComplete(v, catalog), ShouldBeFalse)
			full := scoring.Vector{}
			for _, id := range catalog.IDs() {
				full[id] = 0
			}
			So(scoring.IsComplete(full, catalog), ShouldBeTrue)
		})
	})
}
