package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	dedupe "github.com/BakulBd/GreenGuardian-sub000/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should have default configuration", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When creating a deduper with custom options", func() {
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithMaxSize(100),
			)

			Convey("Then it should have custom configuration", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording samples", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the sample is new", func() {
				seen := d.SeenAndRecord(context.Background(), "sample-1")

				Convey("Then it should return false and record the sample", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the sample was already seen", func() {
				// First time
				d.SeenAndRecord(context.Background(), "sample-1")

				// Second time
				seen := d.SeenAndRecord(context.Background(), "sample-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And multiple samples are recorded", func() {
				samples := []string{"sample-1", "sample-2", "sample-3", "sample-4", "sample-5"}

				for _, id := range samples {
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}

				Convey("Then all samples should be recorded", func() {
					So(d.Size(), ShouldEqual, int64(len(samples)))

					// Check that all samples are seen
					for _, id := range samples {
						seen := d.SeenAndRecord(context.Background(), id)
						So(seen, ShouldBeTrue)
					}
				})
			})
		})

		Convey("When unrecording samples", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the sample exists", func() {
				// Record the sample
				d.SeenAndRecord(context.Background(), "sample-1")
				So(d.Size(), ShouldEqual, 1)

				// Unrecord the sample
				d.Unrecord(context.Background(), "sample-1")

				Convey("Then it should be removed", func() {
					So(d.Size(), ShouldEqual, 0)

					// Should not be seen anymore
					seen := d.SeenAndRecord(context.Background(), "sample-1")
					So(seen, ShouldBeFalse)
				})
			})

			Convey("And the sample doesn't exist", func() {
				// Try to unrecord a non-existent sample
				d.Unrecord(context.Background(), "nonexistent")

				Convey("Then it should not affect the size", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})

			Convey("And multiple samples are unrecorded", func() {
				samples := []string{"sample-1", "sample-2", "sample-3"}

				// Record all samples
				for _, id := range samples {
					d.SeenAndRecord(context.Background(), id)
				}
				So(d.Size(), ShouldEqual, int64(len(samples)))

				// Unrecord all samples
				for _, id := range samples {
					d.Unrecord(context.Background(), id)
				}

				Convey("Then all samples should be removed", func() {
					So(d.Size(), ShouldEqual, 0)

					// Check that none are seen
					for _, id := range samples {
						seen := d.SeenAndRecord(context.Background(), id)
						So(seen, ShouldBeFalse)
					}
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

			Convey("And the deduper is at capacity", func() {
				// Fill to capacity
				samples := []string{"sample-1", "sample-2", "sample-3"}
				for _, id := range samples {
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, 3)

				// Add one more sample
				seen := d.SeenAndRecord(context.Background(), "sample-4")

				Convey("Then it should evict the oldest and add the new one", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)

					// The oldest sample should be evicted, so size should remain 3
					// when we try to add sample-1 again
					originalSize := d.Size()
					seen1 := d.SeenAndRecord(context.Background(), "sample-1")
					So(seen1, ShouldBeFalse)                // Should not be seen (was evicted)
					So(d.Size(), ShouldEqual, originalSize) // Size should not increase

					// Re-recording samples never grows the deduper past the cap;
					// whether a given ID survives depends on eviction order, so
					// check the size rather than the seen flag.
					seen2 := d.SeenAndRecord(context.Background(), "sample-2")
					So(seen2, ShouldBeFalse)
					So(d.Size(), ShouldEqual, originalSize)

					seen3 := d.SeenAndRecord(context.Background(), "sample-3")
					So(seen3, ShouldBeFalse)
					So(d.Size(), ShouldEqual, originalSize)

					seen4 := d.SeenAndRecord(context.Background(), "sample-4")
					So(seen4, ShouldBeFalse)
					So(d.Size(), ShouldEqual, originalSize)
				})
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

			Convey("And many samples are recorded", func() {
				const numSamples = 1000
				for i := 0; i < numSamples; i++ {
					id := fmt.Sprintf("sample-%d", i)
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}

				Convey("Then all samples should be recorded without eviction", func() {
					So(d.Size(), ShouldEqual, int64(numSamples))

					// Check that all samples are seen
					for i := 0; i < numSamples; i++ {
						id := fmt.Sprintf("sample-%d", i)
						seen := d.SeenAndRecord(context.Background(), id)
						So(seen, ShouldBeTrue)
					}
				})
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10
		const samplesPerGoroutine = 100

		Convey("When multiple goroutines record samples concurrently", func() {
			var wg sync.WaitGroup

			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < samplesPerGoroutine; j++ {
						id := fmt.Sprintf("sample-%d-%d", goroutineID, j)
						// This should not panic or cause race conditions
						d.SeenAndRecord(context.Background(), id)
					}
				}(i)
			}

			wg.Wait()

			Convey("Then all samples should be recorded successfully", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*samplesPerGoroutine))
			})
		})

		Convey("When multiple goroutines unrecord samples concurrently", func() {
			// First, record some samples
			const numSamples = 500
			for i := 0; i < numSamples; i++ {
				id := fmt.Sprintf("sample-%d", i)
				d.SeenAndRecord(context.Background(), id)
			}

			So(d.Size(), ShouldEqual, int64(numSamples))

			// Now unrecord them concurrently
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < numSamples/numGoroutines; j++ {
						id := fmt.Sprintf("sample-%d", goroutineID*(numSamples/numGoroutines)+j)
						d.Unrecord(context.Background(), id)
					}
				}(i)
			}

			wg.Wait()

			Convey("Then all samples should be unrecorded successfully", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given a deduper with edge cases", t, func() {
		Convey("When recording an empty string", func() {
			d := dedupe.NewInMemoryDeduper()

			seen := d.SeenAndRecord(context.Background(), "")

			Convey("Then it should handle the empty string", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Should be seen on second call
				seen2 := d.SeenAndRecord(context.Background(), "")
				So(seen2, ShouldBeTrue)
			})
		})

		Convey("When recording very long strings", func() {
			d := dedupe.NewInMemoryDeduper()

			longID := strings.Repeat("a", 10000)
			seen := d.SeenAndRecord(context.Background(), longID)

			Convey("Then it should handle long strings", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Should be seen on second call
				seen2 := d.SeenAndRecord(context.Background(), longID)
				So(seen2, ShouldBeTrue)
			})
		})

		Convey("When using nil context", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should not panic", func() {
				So(func() { d.SeenAndRecord(nil, "sample-1") }, ShouldNotPanic)
				So(func() { d.Unrecord(nil, "sample-1") }, ShouldNotPanic)
			})
		})

		Convey("When using very small max size", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))

			Convey("And adding multiple samples", func() {
				// First sample
				seen1 := d.SeenAndRecord(context.Background(), "sample-1")
				So(seen1, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Second sample should evict the first
				seen2 := d.SeenAndRecord(context.Background(), "sample-2")
				So(seen2, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// First sample should not be seen (was evicted), so size should
				// remain 1 when we record it again
				originalSize := d.Size()
				seen1Again := d.SeenAndRecord(context.Background(), "sample-1")
				So(seen1Again, ShouldBeFalse)
				So(d.Size(), ShouldEqual, originalSize)

				seen2Again := d.SeenAndRecord(context.Background(), "sample-2")
				So(seen2Again, ShouldBeFalse)           // Was evicted by the line above
				So(d.Size(), ShouldEqual, originalSize) // Size should not increase
			})
		})

		Convey("When using negative max size", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))

			Convey("Then it should be unbounded", func() {
				const numSamples = 1000
				for i := 0; i < numSamples; i++ {
					id := fmt.Sprintf("sample-%d", i)
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}

				So(d.Size(), ShouldEqual, int64(numSamples))
			})
		})
	})
}

func TestDedupeOptions(t *testing.T) {
	Convey("Given dedupe options", t, func() {
		Convey("When using WithMaxSize", func() {
			Convey("Then it should set the max size", func() {
				d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(500))
				So(d, ShouldNotBeNil)
			})

			Convey("And when max size is zero", func() {
				d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
				So(d, ShouldNotBeNil)
			})

			Convey("And when max size is negative", func() {
				d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-100))
				So(d, ShouldNotBeNil)
			})
		})
	})
}
