// Comfyui-api is a Go client and command-line tool for driving a ComfyUI
// server through its HTTP and WebSocket API. It loads an API-format workflow,
// patches a handful of parameters (input images, prompt text, LoRA filename,
// seed), submits the workflow, waits for completion over the event channel,
// and downloads the resulting images with timestamped names.
package comfyuiapi
