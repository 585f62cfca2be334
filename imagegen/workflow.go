package imagegen

import (
	"encoding/json"
	"fmt"
)

// promptNodeID is the CLIPTextEncode node whose text input carries the
// image prompt.
const promptNodeID = "5"

// workflow is a ComfyUI node graph keyed by node ID.
type workflow map[string]map[string]any

// classType returns the class_type of a node, or empty when unknown.
func (w workflow) classType(nodeID string) string {
	node, ok := w[nodeID]
	if !ok {
		return ""
	}
	ct, _ := node["class_type"].(string)
	return ct
}

// buildWorkflow returns the generation graph with the prompt injected
// into the text encode node.
func buildWorkflow(prompt string) (workflow, error) {
	var wf workflow
	if err := json.Unmarshal([]byte(workflowTemplate), &wf); err != nil {
		return nil, fmt.Errorf("parse workflow template: %w", err)
	}

	node, ok := wf[promptNodeID]
	if !ok {
		return nil, fmt.Errorf("workflow template missing node %s", promptNodeID)
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("workflow node %s has no inputs", promptNodeID)
	}
	inputs["text"] = prompt
	return wf, nil
}

// workflowTemplate is the Flux generation graph: UNET + dual CLIP +
// LoRA into a KSampler, decoded and emitted over the websocket.
const workflowTemplate = `{
  "1": {
    "inputs": {
      "unet_name": "flux1-dev.safetensors",
      "weight_dtype": "default"
    },
    "class_type": "UNETLoader",
    "_meta": {
      "title": "Load Diffusion Model"
    }
  },
  "2": {
    "inputs": {
      "clip_name1": "clip_l.safetensors",
      "clip_name2": "t5xxl_fp8_e4m3fn.safetensors",
      "type": "flux",
      "device": "default"
    },
    "class_type": "DualCLIPLoader",
    "_meta": {
      "title": "DualCLIPLoader"
    }
  },
  "3": {
    "inputs": {
      "seed": 1004531644334921,
      "steps": 20,
      "cfg": 8,
      "sampler_name": "euler",
      "scheduler": "normal",
      "denoise": 1,
      "model": ["10", 0],
      "positive": ["5", 0],
      "negative": ["5", 0],
      "latent_image": ["6", 0]
    },
    "class_type": "KSampler",
    "_meta": {
      "title": "KSampler"
    }
  },
  "5": {
    "inputs": {
      "text": "",
      "clip": ["2", 0]
    },
    "class_type": "CLIPTextEncode",
    "_meta": {
      "title": "CLIP Text Encode (Prompt)"
    }
  },
  "6": {
    "inputs": {
      "width": 1024,
      "height": 1024,
      "batch_size": 1
    },
    "class_type": "EmptyLatentImage",
    "_meta": {
      "title": "Empty Latent Image"
    }
  },
  "7": {
    "inputs": {
      "samples": ["3", 0],
      "vae": ["8", 0]
    },
    "class_type": "VAEDecode",
    "_meta": {
      "title": "VAE Decode"
    }
  },
  "8": {
    "inputs": {
      "vae_name": "ae.safetensors"
    },
    "class_type": "VAELoader",
    "_meta": {
      "title": "Load VAE"
    }
  },
  "9": {
    "inputs": {},
    "class_type": "PreviewImage",
    "_meta": {
      "title": "Preview Image"
    }
  },
  "10": {
    "inputs": {
      "lora_name": "merida.safetensors",
      "strength_model": 1,
      "model": ["1", 0]
    },
    "class_type": "LoraLoaderModelOnly",
    "_meta": {
      "title": "LoraLoaderModelOnly"
    }
  },
  "14": {
    "inputs": {
      "images": ["7", 0]
    },
    "class_type": "SaveImageWebsocket",
    "_meta": {
      "title": "SaveImageWebsocket"
    }
  }
}`
