package processor

import (
	"strings"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
)

type ParsedJob struct {
	Config orbit.Config
	// RequestedOutput is the output_path the client asked for. The worker
	// always renders under the storage root, so it is only reported.
	RequestedOutput string
}

type JobParser struct {
	storageRoot string
}

func NewJobParser(storageRoot string) *JobParser {
	return &JobParser{storageRoot: storageRoot}
}

// Parse decodes params_json over the defaults and pins the output directory
// to the job's render folder.
func (jp *JobParser) Parse(jobID, paramsJSON string) (*ParsedJob, error) {
	if strings.TrimSpace(paramsJSON) == "" {
		return nil, errors.Configuration("params_json", "job has no parameters")
	}

	cfg, err := orbit.DecodeConfig([]byte(paramsJSON))
	if err != nil {
		return nil, err
	}

	j := &ParsedJob{RequestedOutput: strings.TrimSpace(cfg.OutputPath)}
	cfg.OutputPath = FramesDir(jp.storageRoot, jobID)
	j.Config = cfg
	return j, nil
}
