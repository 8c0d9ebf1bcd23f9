package worker_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	worker "github.com/okian/swingstat/internal/adapters/worker"
	"github.com/okian/swingstat/internal/domain/flatten"
	model "github.com/okian/swingstat/internal/domain/model"
	logging "github.com/okian/swingstat/pkg/logger"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

func batch(n int) []model.RawPitch {
	recs := make([]model.RawPitch, n)
	for i := range recs {
		recs[i] = model.RawPitch{
			"events": []any{map[string]any{"personId": strconv.Itoa(i)}},
		}
	}
	return recs
}

func TestPool_Run(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		ctx := context.Background()

		convey.Convey("When a batch spans many chunks", func() {
			recs := batch(1000)
			pool := worker.NewPool(worker.WithWorkerCount(4), worker.WithChunkSize(7))

			rows, err := pool.Run(ctx, recs, flatten.FlattenPitch)

			convey.Convey("Then every record yields one row in input order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(rows), convey.ShouldEqual, len(recs))
				for i, row := range rows {
					convey.So(*row.BatterID, convey.ShouldEqual, strconv.Itoa(i))
				}
			})

			convey.Convey("Then the result matches sequential flattening", func() {
				convey.So(rows, convey.ShouldResemble, flatten.FlattenAll(recs))
			})
		})

		convey.Convey("When the batch is empty", func() {
			rows, err := worker.NewPool().Run(ctx, nil, flatten.FlattenPitch)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(rows), convey.ShouldEqual, 0)
		})

		convey.Convey("When the transform is called", func() {
			var calls atomic.Int64
			fn := func(r model.RawPitch) model.FlatPitchRow {
				calls.Add(1)
				return flatten.FlattenPitch(r)
			}

			_, err := worker.NewPool(worker.WithChunkSize(3)).Run(ctx, batch(10), fn)

			convey.Convey("Then it runs exactly once per record", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(calls.Load(), convey.ShouldEqual, int64(10))
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			rows, err := worker.NewPool(worker.WithChunkSize(1)).Run(cctx, batch(20), flatten.FlattenPitch)

			convey.Convey("Then no partial output is returned", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(rows, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool_Options(t *testing.T) {
	convey.Convey("Given pool options", t, func() {
		convey.So(worker.NewPool(worker.WithWorkerCount(3)).Workers(), convey.ShouldEqual, 3)
		convey.So(worker.NewPool(worker.WithWorkerCount(0)).Workers(), convey.ShouldBeGreaterThan, 0)
		convey.So(worker.NewPool(worker.WithWorkerCount(1_000_000)).Workers(), convey.ShouldEqual, 1024)
		convey.So(worker.NewPool(worker.WithLogger(nil)), convey.ShouldNotBeNil)
	})
}

func BenchmarkPool_Run(b *testing.B) {
	recs := batch(10_000)
	pool := worker.NewPool()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pool.Run(ctx, recs, flatten.FlattenPitch); err != nil {
			b.Fatal(err)
		}
	}
}
