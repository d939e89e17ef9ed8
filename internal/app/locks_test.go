package service

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyedMutex(t *testing.T) {
	Convey("Given a keyed mutex", t, func() {
		k := newKeyedMutex()

		Convey("When many goroutines increment under the same key", func() {
			var wg sync.WaitGroup
			counter := 0
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := k.Lock("a-1")
					counter++
					unlock()
				}()
			}
			wg.Wait()

			Convey("Then no increment is lost and the entry is released", func() {
				So(counter, ShouldEqual, 100)
				So(k.size(), ShouldEqual, 0)
			})
		})

		Convey("When two different keys are held", func() {
			unlockA := k.Lock("a-1")
			unlockB := k.Lock("a-2")

			Convey("Then both are tracked until released", func() {
				So(k.size(), ShouldEqual, 2)
				unlockA()
				unlockB()
				So(k.size(), ShouldEqual, 0)
			})
		})
	})
}
