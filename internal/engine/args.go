package engine

import "strconv"

// BuildTranscribeArgs returns the executable arguments for req, writing
// output into outDir. Flag order is fixed.
func (e *Engine) BuildTranscribeArgs(req Request, outDir string) []string {
	args := []string{req.AudioPath}

	if req.Task != "" {
		args = append(args, "--task", string(req.Task))
	}
	if req.Language != "" {
		args = append(args, "-l", req.Language)
	}
	if req.InitialPrompt != "" {
		args = append(args, "--initial_prompt", req.InitialPrompt)
	}
	if req.VADFilter {
		args = append(args, "--vad_filter", "True")
	}
	if req.WordTimestamps {
		args = append(args, "--word_timestamps", "True")
	}
	if e.standard {
		args = append(args, "--standard")
	}

	args = append(args, "--max_gap", strconv.FormatFloat(e.maxGap, 'f', -1, 64))
	args = append(args, "-f", string(ResolveOutputFormat(req.Output)))
	args = append(args, "-o", outDir)

	return args
}

func languageDetectionArgs(audioPath string) []string {
	return []string{audioPath, "--language_detection_segments", "1"}
}
