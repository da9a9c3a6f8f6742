package workflow

import (
	"math/rand"
	"path/filepath"
)

// Uploader sends a local image to the server's input storage and reports the
// server-assigned filename, which may differ from the one provided.
type Uploader interface {
	UploadImage(localPath, subfolder string, overwrite bool) (string, error)
}

// SetImage points the image input of nodeID at localPath. When an Uploader is
// supplied the file is uploaded first and the server-assigned name is used;
// without one the local basename is set as-is, which is only useful for
// offline inspection of the patched workflow.
//
// Patching a node identifier that is not present in the workflow is a silent
// no-op. That holds for every patch helper here.
func SetImage(w Workflow, nodeID, localPath string, up Uploader) error {
	in := w.inputs(nodeID)
	if in == nil {
		return nil
	}
	if up == nil {
		in["image"] = filepath.Base(localPath)
		return nil
	}
	name, err := up.UploadImage(localPath, "", true)
	if err != nil {
		return err
	}
	in["image"] = name
	return nil
}

// SetPrompt replaces the prompt text input of nodeID.
func SetPrompt(w Workflow, nodeID, text string) {
	if in := w.inputs(nodeID); in != nil {
		in["prompt"] = text
	}
}

// SetLoRA replaces the lora_name input of nodeID. The node must already
// carry a lora_name input; nodes without one are left untouched.
func SetLoRA(w Workflow, nodeID, loraName string) {
	in := w.inputs(nodeID)
	if in == nil {
		return
	}
	if _, ok := in["lora_name"]; ok {
		in["lora_name"] = loraName
	}
}

// SetSeed replaces the seed input of nodeID. A nil seed picks a uniform
// random 32-bit value so repeated runs vary. The node must already carry a
// seed input. Returns the value applied and whether the patch took effect.
func SetSeed(w Workflow, nodeID string, seed *int64) (int64, bool) {
	in := w.inputs(nodeID)
	if in == nil {
		return 0, false
	}
	if _, ok := in["seed"]; !ok {
		return 0, false
	}
	value := RandomSeed()
	if seed != nil {
		value = *seed
	}
	in["seed"] = value
	return value, true
}

// RandomSeed returns a uniform random value in [0, 2^32).
func RandomSeed() int64 {
	return rand.Int63n(1 << 32)
}
