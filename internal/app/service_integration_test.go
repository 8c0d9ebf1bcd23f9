package service_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/swingstat/internal/adapters/ledger"
	service "github.com/okian/swingstat/internal/app"
	"github.com/okian/swingstat/internal/samplegen"
)

const rawBatch = `[
	{"events":[{"personId":1}],"samples_bat":[{"t":0}],
	 "summary_acts":{"hit":{"speed":{"mph":99.1}},"pitch":{"type":"FF","result":"X"}}},
	{"events":[{"personId":{"mlbId":1}}],"samples_bat":[{"t":0}],
	 "summary_acts":{"pitch":{"type":"SL","result":"S"}}},
	{"events":[{"personId":2}],"summary_acts":{"hit":{"speed":{"mph":130}}}},
	{"events":[],"summary_acts":{}}
]`

func TestPipeline_EndToEnd(t *testing.T) {
	Convey("Given a raw batch on disk", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		in := filepath.Join(dir, "data", "batch_raw.json")
		processed := filepath.Join(dir, "data", "processed_pitches.parquet")
		summary := filepath.Join(dir, "data", "batter_summary.csv")
		So(os.MkdirAll(filepath.Dir(in), 0o755), ShouldBeNil)
		So(os.WriteFile(in, []byte(rawBatch), 0o600), ShouldBeNil)

		runs, err := ledger.Open(ctx, filepath.Join(dir, "data", "runs.db"))
		So(err, ShouldBeNil)
		defer func() { _ = runs.Close() }()

		var out bytes.Buffer
		svc := service.New(
			service.WithOutput(&out),
			service.WithLedger(runs),
			service.WithWorkerCount(2),
			service.WithChunkSize(1),
		)

		Convey("When ingest runs", func() {
			res, err := svc.Ingest(ctx, in, processed)
			So(err, ShouldBeNil)

			Convey("Then every record becomes one row", func() {
				So(res.Records, ShouldEqual, 4)
				So(res.RowsWritten, ShouldEqual, int64(4))
				So(res.Stats.Swings, ShouldEqual, 2)
				So(res.Stats.Contacts, ShouldEqual, 1)
				So(res.Stats.MissingBatter, ShouldEqual, 1)
				So(res.Stats.RejectedExitVelocity, ShouldEqual, 1)
				_, parseErr := uuid.Parse(res.RunID)
				So(parseErr, ShouldBeNil)
				So(res.InputDigest, ShouldNotBeEmpty)
			})

			Convey("Then the console summary is printed", func() {
				text := out.String()
				So(text, ShouldContainSubstring, "Loaded 4 raw pitch records")
				So(text, ShouldContainSubstring, "Transformation complete")
				So(text, ShouldContainSubstring, "Processed dataset written to "+processed)
			})

			Convey("Then the run is in the ledger", func() {
				run, ok, err := runs.Latest(ctx, ledger.StageIngest, ledger.StatusSuccess)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(run.ID, ShouldEqual, res.RunID)
				So(run.InputDigest, ShouldEqual, res.InputDigest)
				So(run.Rows, ShouldEqual, int64(4))
			})

			Convey("When aggregate runs on the processed table", func() {
				out.Reset()
				agg, err := svc.Aggregate(ctx, processed, summary)
				So(err, ShouldBeNil)

				Convey("Then the summary CSV holds one row per batter", func() {
					data, err := os.ReadFile(summary)
					So(err, ShouldBeNil)
					So(string(data), ShouldEqual,
						"batter_id,swing_count,whiff_rate,max_exit_velocity\n"+
							"1,2,0.5,99.1\n"+
							"2,0,0.0,\n"+
							",0,0.0,\n")
				})

				Convey("Then the aggregate is traced to the ingest run", func() {
					So(agg.Rows, ShouldEqual, int64(4))
					So(agg.Source, ShouldNotBeNil)
					So(agg.Source.ID, ShouldEqual, res.RunID)

					run, ok, err := runs.Latest(ctx, ledger.StageAggregate, ledger.StatusSuccess)
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(run.ID, ShouldEqual, agg.RunID)
					So(run.InputDigest, ShouldEqual, res.InputDigest)
				})

				Convey("Then the console summary is printed", func() {
					text := out.String()
					So(text, ShouldContainSubstring, "Loaded 4 processed pitch records")
					So(text, ShouldContainSubstring, "Batter-level summary:")
					So(text, ShouldContainSubstring, "Aggregation results written to "+summary)
				})
			})
		})

		Convey("When null batters are dropped", func() {
			drop := service.New(service.WithOutput(&out), service.WithDropMissingBatter(true))
			_, err := drop.Ingest(ctx, in, processed)
			So(err, ShouldBeNil)

			agg, err := drop.Aggregate(ctx, processed, summary)

			So(err, ShouldBeNil)
			So(len(agg.Summary), ShouldEqual, 2)
			So(agg.Source, ShouldBeNil)
		})

		Convey("When ingest fails", func() {
			So(os.WriteFile(in, []byte(`[1, 2]`), 0o600), ShouldBeNil)
			_, err := svc.Ingest(ctx, in, processed)
			So(err, ShouldNotBeNil)

			Convey("Then the failure is ledgered", func() {
				run, ok, err := runs.Latest(ctx, ledger.StageIngest, ledger.StatusFailure)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(run.Error, ShouldContainSubstring, "malformed input")
			})
		})
	})
}

func TestPipeline_GeneratedBatch(t *testing.T) {
	Convey("Given a generated batch", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		in := filepath.Join(dir, "batch_raw.json")
		processed := filepath.Join(dir, "processed.parquet")
		summary := filepath.Join(dir, "summary.csv")

		gen := samplegen.New(samplegen.WithSeed(7), samplegen.WithBatters(25))
		So(gen.WriteFile(in, 2000), ShouldBeNil)

		var out bytes.Buffer
		svc := service.New(service.WithOutput(&out), service.WithChunkSize(128))

		Convey("When both stages run", func() {
			ing, err := svc.Ingest(ctx, in, processed)
			So(err, ShouldBeNil)
			agg, err := svc.Aggregate(ctx, processed, summary)
			So(err, ShouldBeNil)

			Convey("Then cardinality holds and rollups are consistent", func() {
				So(ing.Records, ShouldEqual, 2000)
				So(agg.Rows, ShouldEqual, int64(2000))

				var swings int64
				for _, s := range agg.Summary {
					swings += s.SwingCount
					So(s.WhiffRate, ShouldBeBetweenOrEqual, 0.0, 1.0)
					if s.MaxExitVelocity != nil {
						So(*s.MaxExitVelocity, ShouldBeBetweenOrEqual, 0.0, 125.0)
					}
				}
				So(swings, ShouldEqual, int64(ing.Stats.Swings))

				data, err := os.ReadFile(summary)
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
				So(len(lines), ShouldEqual, len(agg.Summary)+1)
			})
		})
	})
}
