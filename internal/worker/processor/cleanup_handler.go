package processor

import (
	"errors"
	"os"
	"syscall"

	"turntable/internal/ports"
)

type Cleanup struct {
	storageRoot  string
	cleanupLocal bool
	sp           ports.StorageProvider
}

func NewCleanup(storageRoot string, cleanupLocal bool, sp ports.StorageProvider) *Cleanup {
	return &Cleanup{
		storageRoot:  storageRoot,
		cleanupLocal: cleanupLocal,
		sp:           sp,
	}
}

// CleanupJob drops the job's local working files once every frame lives in
// remote storage. Nothing is removed for localfs, where the render folder is
// the stored copy.
func (c *Cleanup) CleanupJob(jobID string) error {
	if !c.shouldCleanup() {
		return nil
	}

	if err := os.RemoveAll(InputsDir(c.storageRoot, jobID)); err != nil {
		return err
	}

	// Frames are removed one by one after upload, so only an empty folder is
	// expected here. A leftover file means an upload was skipped; keep it.
	err := os.Remove(FramesDir(c.storageRoot, jobID))
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	if errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
		return nil
	}
	return err
}

func (c *Cleanup) shouldCleanup() bool {
	return c.cleanupLocal && c.sp.Provider() == "gdrive"
}
