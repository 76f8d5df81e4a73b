package probe

import (
	"math"
	"strconv"
	"strings"
)

// StreamClassification splits the video streams of a file into the real
// footage and everything else (cover art, embedded thumbnails).
type StreamClassification struct {
	Primary   *Stream
	Auxiliary []Stream
}

// ClassifyVideoStreams picks the stream most likely to be the footage. Phones
// and editors attach mjpeg/png covers as extra video streams; those must not
// decide whether a file is already encoded with the target codec.
func ClassifyVideoStreams(streams []Stream, formatDuration float64) *StreamClassification {
	var video []Stream
	for _, s := range streams {
		if s.CodecType == "video" {
			video = append(video, s)
		}
	}

	switch len(video) {
	case 0:
		return &StreamClassification{}
	case 1:
		return &StreamClassification{Primary: &video[0]}
	}

	best := 0
	bestScore := scoreStream(video[0], formatDuration)
	for i := 1; i < len(video); i++ {
		if score := scoreStream(video[i], formatDuration); score > bestScore {
			best, bestScore = i, score
		}
	}

	result := &StreamClassification{Primary: &video[best]}
	for i, s := range video {
		if i != best {
			result.Auxiliary = append(result.Auxiliary, s)
		}
	}
	return result
}

func scoreStream(s Stream, formatDuration float64) float64 {
	score := codecScore(s.CodecName)
	score += math.Max(0, 5-float64(s.Index))
	score += pixelFormatScore(s.PixelFormat)
	score += durationScore(s, formatDuration)

	if pixels := s.Width * s.Height; pixels > 0 {
		score += math.Log10(float64(pixels)) * 10
		if pixels < 200*200 {
			score -= 50
		}
	}

	if bitrate := streamBitrate(s); bitrate > 0 {
		score += math.Log10(float64(bitrate)/1000) * 15
		if bitrate < 100_000 {
			score -= 30
		}
	}

	return score
}

func codecScore(name string) float64 {
	switch strings.ToLower(name) {
	case "hevc", "h265":
		return 100
	case "h264", "avc":
		return 95
	case "av1":
		return 90
	case "vp9":
		return 85
	case "vp8":
		return 80
	case "mpeg4":
		return 75
	case "mpeg2video":
		return 70
	case "mjpeg":
		return 10
	case "png", "bmp":
		return 5
	default:
		return 50
	}
}

func pixelFormatScore(pixFmt string) float64 {
	pf := strings.ToLower(pixFmt)
	score := 0.0
	if strings.Contains(pf, "yuv") {
		score += 10
	}
	for _, sub := range []string{"420", "422", "444"} {
		if strings.Contains(pf, sub) {
			score += 5
		}
	}
	if strings.Contains(pf, "rgb") {
		score -= 5
	}
	return score
}

// durationScore favors streams that span the whole container. Only matroska
// style DURATION tags are considered.
func durationScore(s Stream, formatDuration float64) float64 {
	if formatDuration < 10 {
		return 0
	}
	tag, ok := s.Tags["DURATION"]
	if !ok {
		return 0
	}
	duration := parseClockDuration(tag)
	if duration <= 0 {
		return 0
	}

	ratio := duration / formatDuration
	switch {
	case ratio > 0.95 && ratio < 1.05:
		return 20
	case ratio < 0.1:
		return -30
	}
	return 0
}

func streamBitrate(s Stream) int64 {
	if bitrate, err := strconv.ParseInt(s.Bitrate, 10, 64); err == nil {
		return bitrate
	}
	if bitrate, err := strconv.ParseInt(s.Tags["BPS"], 10, 64); err == nil {
		return bitrate
	}
	return 0
}

// parseClockDuration reads HH:MM:SS.fff.
func parseClockDuration(value string) float64 {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, _ := strconv.ParseFloat(parts[0], 64)
	minutes, _ := strconv.ParseFloat(parts[1], 64)
	seconds, _ := strconv.ParseFloat(parts[2], 64)
	return hours*3600 + minutes*60 + seconds
}
