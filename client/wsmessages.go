package client

import "encoding/json"

// wsMessage is the envelope of every text frame on the event channel. Data
// stays raw until the type tag selects a payload shape; types this client
// does not classify are ignored.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

/*
{"type": "executing", "data": {"node": "12", "prompt_id": "ed986d60-..."}}

A null node with a matching prompt_id is the global completion signal.
*/
type wsExecuting struct {
	Node     *string `json:"node"`
	PromptID string  `json:"prompt_id"`
}

/*
{"type": "progress", "data": {"value": 1, "max": 20}}
*/
type wsProgress struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

/*
{"type": "executed", "data": {"node": "19", "output": {"images": [{"filename": "ComfyUI_00046_.png", "subfolder": "", "type": "output"}]}, "prompt_id": "ed986d60-..."}}

One executed event arrives per node that produced output.
*/
type wsExecuted struct {
	Node     string `json:"node"`
	PromptID string `json:"prompt_id"`
	Output   struct {
		Images []DataOutput `json:"images"`
	} `json:"output"`
}
