package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"media-classify/lib"
	"media-classify/lib/compliance"
	"media-classify/lib/encode"
	"media-classify/lib/probe"
	"media-classify/lib/probe/probetest"
	"media-classify/lib/timestamp/timestamptest"
)

var _ = Describe("Classifier", func() {
	var (
		dir      string
		ctx      context.Context
		settings *lib.Settings
		prober   *probetest.Fake
		encoder  *fakeEncoder
	)

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())
		return path
	}

	picture := func(name, taken string) string {
		return write(name, timestamptest.TIFF(taken, ""))
	}

	video := func(name string, size int, codec string, bitrate int64) string {
		path := write(name, make([]byte, size))
		prober.Set(path, probetest.File{Codec: codec, Bitrate: bitrate})
		return path
	}

	size := func(path string) int64 {
		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		return info.Size()
	}

	run := func() *Stats {
		Expect(settings.Validate()).To(Succeed())
		app := &App{Settings: settings, Prober: prober, Encoder: encoder}
		stats, err := app.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		return stats
	}

	entries := func() []string {
		var names []string
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			Expect(err).NotTo(HaveOccurred())
			if !info.IsDir() {
				rel, _ := filepath.Rel(dir, path)
				names = append(names, rel)
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return names
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()
		prober = probetest.New()
		encoder = &fakeEncoder{prober: prober, ratio: 0.5}

		settings = lib.DefaultSettings()
		settings.Directory = dir
		settings.Timezone = "UTC"
	})

	Describe("pictures", func() {
		It("renames pictures after their capture time and suffixes collisions", func() {
			picture("IMG_0001.jpg", "2017:03:04 10:20:30")
			picture("IMG_0002.JPEG", "2017:03:04 10:20:30")
			picture("sub/IMG_0003.jpg", "2018:06:07 08:09:10")

			stats := run()
			Expect(stats.Pictures).To(Equal(3))
			Expect(stats.Renamed).To(Equal(3))
			Expect(entries()).To(ConsistOf(
				"2017-03-04-10h20m30.jpg",
				"2017-03-04-10h20m30a.jpg",
				filepath.Join("sub", "2018-06-07-08h09m10.jpg"),
			))
		})

		It("leaves everything in place on a second run", func() {
			picture("IMG_0001.jpg", "2017:03:04 10:20:30")
			picture("IMG_0002.jpg", "2017:03:04 10:20:30")
			run()
			before := entries()

			stats := run()
			Expect(stats.Renamed).To(BeZero())
			Expect(stats.Unchanged).To(Equal(2))
			Expect(entries()).To(Equal(before))
		})

		It("skips pictures without a capture date", func() {
			write("scan.png", []byte("\x89PNG\r\n\x1a\nnot really"))

			stats := run()
			Expect(stats.Skipped).To(Equal(1))
			Expect(entries()).To(ConsistOf("scan.png"))
		})

		It("copies into the output directory with keep_original", func() {
			src := picture("IMG_0001.jpg", "2017:03:04 10:20:30")
			settings.KeepOriginal = true
			settings.Output = filepath.Join(dir, "sorted")

			stats := run()
			Expect(stats.Copied).To(Equal(1))
			Expect(src).To(BeAnExistingFile())
			Expect(filepath.Join(dir, "sorted", "2017-03-04-10h20m30.jpg")).To(BeAnExistingFile())

			// The output directory is not scanned as input, and the
			// earlier copy is recognized.
			stats = run()
			Expect(stats.Pictures).To(Equal(1))
			Expect(stats.Unchanged).To(Equal(1))
			Expect(entries()).To(ConsistOf("IMG_0001.jpg", filepath.Join("sorted", "2017-03-04-10h20m30.jpg")))
		})

		It("copies next to the original only once with keep_original", func() {
			picture("IMG_0001.jpg", "2017:03:04 10:20:30")
			// Same capture time, different content.
			write("IMG_0002.jpg", append(timestamptest.TIFF("2017:03:04 10:20:30", ""), 0))
			settings.KeepOriginal = true

			stats := run()
			Expect(stats.Copied).To(Equal(2))
			expected := []string{
				"2017-03-04-10h20m30.jpg",
				"2017-03-04-10h20m30a.jpg",
				"IMG_0001.jpg",
				"IMG_0002.jpg",
			}
			Expect(entries()).To(ConsistOf(expected))

			// The copies are rescanned as input and keep their names.
			for i := 0; i < 2; i++ {
				stats = run()
				Expect(stats.Pictures).To(Equal(4))
				Expect(stats.Copied).To(BeZero())
				Expect(stats.Renamed).To(BeZero())
				Expect(stats.Unchanged).To(Equal(4))
				Expect(entries()).To(ConsistOf(expected))
			}
		})
	})

	It("deletes Android trash before processing", func() {
		trash := picture(".trashed-1700000000-IMG_0001.jpg", "2017:03:04 10:20:30")
		pending := video(".pending-1700000000-VID_20150807_091302123.mp4", 100, "h264", 1)

		stats := run()
		Expect(stats.Deleted).To(Equal(2))
		Expect(stats.Pictures).To(BeZero())
		Expect(stats.Videos).To(BeZero())
		Expect(trash).NotTo(BeAnExistingFile())
		Expect(pending).NotTo(BeAnExistingFile())
	})

	It("changes nothing in dry-run", func() {
		picture("IMG_0001.jpg", "2017:03:04 10:20:30")
		picture(".trashed-1700000000-IMG_0002.jpg", "2017:03:04 10:20:30")
		video("VID_20150807_091302123.mp4", 1_000_000, "h264", 20_000_000)
		settings.DryRun = true
		settings.Output = filepath.Join(dir, "sorted")
		encoder.dryRun = true
		before := entries()

		stats := run()
		Expect(stats.Renamed).To(Equal(1))
		Expect(stats.Deleted).To(Equal(1))
		Expect(stats.Encoded).To(Equal(1))
		Expect(entries()).To(Equal(before))
		Expect(filepath.Join(dir, "sorted")).NotTo(BeADirectory())
	})

	Describe("videos", func() {
		const original = "VID_20150807_091302123.mp4"
		const canonical = "2015-08-07-09h13m02.mp4"

		It("keeps a smaller encode under the canonical name", func() {
			src := video(original, 1_000_000, "h264", 20_000_000)

			stats := run()
			Expect(stats.Encoded).To(Equal(1))
			Expect(stats.BytesSaved).To(Equal(int64(500_000)))
			Expect(src).NotTo(BeAnExistingFile())
			Expect(size(filepath.Join(dir, canonical))).To(Equal(int64(500_000)))

			Expect(encoder.inputs).To(Equal([]string{src}))
			Expect(encoder.created[0].Equal(time.Date(2015, 8, 7, 9, 13, 2, 123000000, time.UTC))).To(BeTrue())

			// The marker keeps the encode from being encoded again.
			stats = run()
			Expect(stats.Compliant).To(Equal(1))
			Expect(encoder.calls()).To(Equal(1))
		})

		It("keeps the original when the encode saves too little", func() {
			encoder.ratio = 0.95
			video(original, 1_000_000, "h264", 20_000_000)

			stats := run()
			Expect(stats.KeptOriginal).To(Equal(1))

			dest := filepath.Join(dir, canonical)
			Expect(size(dest)).To(Equal(int64(1_000_000)))
			Expect(compliance.HasValidSkipFile(dest)).To(BeTrue())

			// The sidecar keeps the original from being encoded again.
			prober.Set(dest, probetest.File{
				Codec:   "h264",
				Bitrate: 20_000_000,
				Tags:    map[string]string{probe.TagCreationTime: "2015-08-07T09:13:02Z"},
			})
			stats = run()
			Expect(stats.Compliant).To(Equal(1))
			Expect(encoder.calls()).To(Equal(1))
		})

		It("keeps an original in its own container", func() {
			encoder.ratio = 0.95
			video("VID_20150807_091302123.mkv", 1_000_000, "h264", 20_000_000)

			run()
			Expect(entries()).To(ConsistOf("2015-08-07-09h13m02.mkv", "2015-08-07-09h13m02.skip"))
		})

		It("encodes a video that already has its canonical name through a temporary file", func() {
			src := video(canonical, 1_000_000, "h264", 20_000_000)
			prober.Set(src, probetest.File{
				Codec:   "h264",
				Bitrate: 20_000_000,
				Tags:    map[string]string{probe.TagCreationTime: "2015-08-07T09:13:02Z"},
			})

			stats := run()
			Expect(stats.Encoded).To(Equal(1))
			Expect(encoder.outputs).To(HaveLen(1))
			Expect(filepath.Base(encoder.outputs[0])).To(HavePrefix(lib.TempPrefix))
			Expect(entries()).To(ConsistOf(canonical))
			Expect(size(src)).To(Equal(int64(500_000)))
		})

		It("renames a compliant video without encoding it", func() {
			path := write("holiday.mp4", make([]byte, 1000))
			prober.Set(path, probetest.File{
				Codec:   "hevc",
				Bitrate: 1_000_000,
				Tags: map[string]string{
					probe.TagComment:      "made by " + lib.DefaultMarker,
					probe.TagCreationTime: "2016-05-01T12:00:00Z",
				},
			})

			stats := run()
			Expect(stats.Compliant).To(Equal(1))
			Expect(encoder.calls()).To(BeZero())
			Expect(entries()).To(ConsistOf("2016-05-01-12h00m00.mp4"))
		})

		It("leaves the original untouched when encoding fails", func() {
			encoder.encodeErr = &encode.EncodingError{Input: "x", Output: "y", Err: errors.New("exit status 1")}
			src := video(original, 1_000_000, "h264", 20_000_000)

			stats := run()
			Expect(stats.Failed).To(Equal(1))
			Expect(entries()).To(ConsistOf(original))
			Expect(size(src)).To(Equal(int64(1_000_000)))
		})

		It("discards a candidate that fails verification", func() {
			encoder.verifyErr = &encode.VerificationError{Path: "y", Diagnostic: "moov atom not found"}
			src := video(original, 1_000_000, "h264", 20_000_000)

			stats := run()
			Expect(stats.Failed).To(Equal(1))
			Expect(entries()).To(ConsistOf(original))
			Expect(src).To(BeAnExistingFile())
		})

		It("encodes next to the original only once with keep_original", func() {
			src := video(original, 1_000_000, "h264", 20_000_000)
			settings.KeepOriginal = true

			stats := run()
			Expect(stats.Encoded).To(Equal(1))
			Expect(src).To(BeAnExistingFile())
			Expect(entries()).To(ConsistOf(original, canonical))

			stats = run()
			Expect(stats.Encoded).To(BeZero())
			Expect(stats.Compliant).To(Equal(1))
			Expect(stats.Unchanged).To(Equal(1))
			Expect(encoder.calls()).To(Equal(1))
			Expect(entries()).To(ConsistOf(original, canonical))
		})

		It("recognizes an earlier encode in the output directory with keep_original", func() {
			video(original, 1_000_000, "h264", 20_000_000)
			settings.KeepOriginal = true
			settings.Output = filepath.Join(dir, "sorted")

			run()
			Expect(entries()).To(ConsistOf(original, filepath.Join("sorted", canonical)))

			stats := run()
			Expect(stats.Unchanged).To(Equal(1))
			Expect(encoder.calls()).To(Equal(1))
			Expect(entries()).To(ConsistOf(original, filepath.Join("sorted", canonical)))
		})

		It("leaves partial output behind when interrupted", func() {
			src := video(original, 1_000_000, "h264", 20_000_000)
			Expect(settings.Validate()).To(Succeed())

			interrupted, cancel := context.WithCancel(ctx)
			defer cancel()
			encoder.interrupt = cancel

			app := &App{Settings: settings, Prober: prober, Encoder: encoder}
			_, err := app.Run(interrupted)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(src).To(BeAnExistingFile())
			Expect(size(filepath.Join(dir, canonical))).To(Equal(int64(500_000)))
			Expect(entries()).To(ConsistOf(original, canonical))
		})

		It("skips videos the prober knows nothing about", func() {
			write("holiday.mp4", make([]byte, 1000))
			prober.Set(filepath.Join(dir, "holiday.mp4"), probetest.File{
				Tags: map[string]string{probe.TagCreationTime: "2016-05-01T12:00:00Z"},
			})

			stats := run()
			Expect(stats.Skipped).To(Equal(1))
			Expect(encoder.calls()).To(BeZero())
		})
	})

	It("stops between items when cancelled", func() {
		picture("IMG_0001.jpg", "2017:03:04 10:20:30")
		Expect(settings.Validate()).To(Succeed())

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		app := &App{Settings: settings, Prober: prober, Encoder: encoder}
		_, err := app.Run(cancelled)
		Expect(err).To(HaveOccurred())
		Expect(entries()).To(ConsistOf("IMG_0001.jpg"))
	})

	It("rejects items outside the input root", func() {
		Expect(settings.Validate()).To(Succeed())
		c, err := NewClassifier(settings, prober, encoder)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.outputDir(filepath.Join(filepath.Dir(dir), "elsewhere", "x.jpg"))
		Expect(lib.IsInvariant(err)).To(BeTrue())
		Expect(strings.Contains(err.Error(), "output_dir")).To(BeTrue())
	})
})
