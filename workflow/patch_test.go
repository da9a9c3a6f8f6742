package workflow

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func testWorkflow(t *testing.T, raw string) Workflow {
	t.Helper()
	var w Workflow
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("bad test workflow: %v", err)
	}
	return w
}

func clone(t *testing.T, w Workflow) Workflow {
	t.Helper()
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var c Workflow
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return c
}

type fakeUploader struct {
	name  string
	err   error
	calls []string
}

func (f *fakeUploader) UploadImage(path, subfolder string, overwrite bool) (string, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

func TestPatchMissingNodeIsNoOp(t *testing.T) {
	w := testWorkflow(t, `{"1": {"inputs": {"image": "old.png", "seed": 7, "lora_name": "a", "prompt": "x"}}}`)
	before := clone(t, w)

	if err := SetImage(w, "99", "cat.png", nil); err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	SetPrompt(w, "99", "new prompt")
	SetLoRA(w, "99", "other.safetensors")
	if _, applied := SetSeed(w, "99", nil); applied {
		t.Error("SetSeed reported a patch on an absent node")
	}

	if !reflect.DeepEqual(w, before) {
		t.Errorf("workflow changed by patches targeting an absent node:\n got %v\nwant %v", w, before)
	}
}

func TestSetImageLocalBasename(t *testing.T) {
	w := testWorkflow(t, `{"1": {"inputs": {"image": "old.png"}}}`)
	if err := SetImage(w, "1", "/some/dir/cat.png", nil); err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if got := w["1"].Inputs()["image"]; got != "cat.png" {
		t.Errorf("image = %v, want cat.png", got)
	}
}

func TestSetImageUploadsFirst(t *testing.T) {
	w := testWorkflow(t, `{"1": {"inputs": {"image": "old.png"}}}`)
	up := &fakeUploader{name: "cat_001.png"}
	if err := SetImage(w, "1", "/some/dir/cat.png", up); err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if got := w["1"].Inputs()["image"]; got != "cat_001.png" {
		t.Errorf("image = %v, want the server-assigned cat_001.png", got)
	}
	if len(up.calls) != 1 || up.calls[0] != "/some/dir/cat.png" {
		t.Errorf("upload calls = %v", up.calls)
	}
}

func TestSetImageUploadErrorPropagates(t *testing.T) {
	w := testWorkflow(t, `{"1": {"inputs": {"image": "old.png"}}}`)
	boom := errors.New("boom")
	if err := SetImage(w, "1", "cat.png", &fakeUploader{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got := w["1"].Inputs()["image"]; got != "old.png" {
		t.Errorf("image = %v, want untouched old.png", got)
	}
}

func TestSetPrompt(t *testing.T) {
	w := testWorkflow(t, `{"111": {"inputs": {"prompt": "old"}}}`)
	SetPrompt(w, "111", "three models in one image")
	if got := w["111"].Inputs()["prompt"]; got != "three models in one image" {
		t.Errorf("prompt = %v", got)
	}
}

func TestSetLoRARequiresExistingField(t *testing.T) {
	w := testWorkflow(t, `{
		"89": {"inputs": {"lora_name": "old.safetensors"}},
		"90": {"inputs": {"strength": 1.0}}
	}`)
	SetLoRA(w, "89", "new.safetensors")
	SetLoRA(w, "90", "new.safetensors")

	if got := w["89"].Inputs()["lora_name"]; got != "new.safetensors" {
		t.Errorf("node 89 lora_name = %v", got)
	}
	if _, ok := w["90"].Inputs()["lora_name"]; ok {
		t.Error("node 90 gained a lora_name input it never had")
	}
}

func TestSetSeedExplicit(t *testing.T) {
	w := testWorkflow(t, `{"3": {"inputs": {"seed": 1}}}`)
	seed := int64(940686007127)
	got, applied := SetSeed(w, "3", &seed)
	if !applied || got != seed {
		t.Fatalf("SetSeed = (%d, %v), want (%d, true)", got, applied, seed)
	}
	if v := w["3"].Inputs()["seed"]; v != seed {
		t.Errorf("seed input = %v", v)
	}
}

func TestSetSeedRandomRange(t *testing.T) {
	w := testWorkflow(t, `{"3": {"inputs": {"seed": 1}}}`)
	got, applied := SetSeed(w, "3", nil)
	if !applied {
		t.Fatal("seed not applied")
	}
	if got < 0 || got >= 1<<32 {
		t.Errorf("random seed %d outside [0, 2^32)", got)
	}
}

func TestSetSeedRequiresExistingField(t *testing.T) {
	w := testWorkflow(t, `{"3": {"inputs": {"steps": 8}}}`)
	if _, applied := SetSeed(w, "3", nil); applied {
		t.Error("SetSeed patched a node without a seed input")
	}
}
