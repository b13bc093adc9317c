package flow

import "oho-chat-gateway/pkg/flow/tweaks"

// BaseParams are the static per-deployment defaults baked into the base
// tweaks map: model selection, retrieval parameters and the provider
// credentials the engine forwards to its nodes.
type BaseParams struct {
	OpenAIKey         string
	PineconeKey       string
	PineconeNamespace string
	ModelName         string
	Temperature       float64
	RetrievalTopK     int
}

// BuildBaseTweaks produces the static base map for a flow: one entry per
// node (so operators can see the full override surface in the debug
// panel), with model and retrieval defaults filled in on the nodes that
// take them. The result is cloned per turn by the overlay, never mutated.
func BuildBaseTweaks(def *Definition, p BaseParams) tweaks.Map {
	base := make(tweaks.Map, len(def.NodeIDs))
	for _, id := range def.NodeIDs {
		base[id] = map[string]any{}
	}

	for _, id := range def.NodesWithPrefix("OpenAIModel") {
		base[id] = map[string]any{
			"model_name":     p.ModelName,
			"temperature":    p.Temperature,
			"openai_api_key": p.OpenAIKey,
		}
	}
	for _, id := range def.NodesWithPrefix("OpenAIEmbeddings") {
		base[id] = map[string]any{
			"openai_api_key": p.OpenAIKey,
		}
	}
	for _, id := range def.NodesWithPrefix("Pinecone") {
		bag := map[string]any{
			"pinecone_api_key":  p.PineconeKey,
			"number_of_results": p.RetrievalTopK,
		}
		if p.PineconeNamespace != "" {
			bag["namespace"] = p.PineconeNamespace
		}
		base[id] = bag
	}

	return base
}

// NewOverlay resolves the overlay's target nodes from the definition.
// Flows without a memory or prompt node simply skip those overlay steps.
func NewOverlay(def *Definition) *tweaks.Overlay {
	o := &tweaks.Overlay{
		UserSender:        "User",
		UserSenderName:    "User",
		MachineSender:     "Machine",
		MachineSenderName: "AI",
	}
	if id, ok := def.NodeWithPrefix("ChatInput"); ok {
		o.InputNode = id
	}
	if id, ok := def.NodeWithPrefix("ChatOutput"); ok {
		o.OutputNode = id
	}
	if id, ok := def.NodeWithPrefix("Memory"); ok {
		o.MemoryNode = id
	}
	if id, ok := def.NodeWithPrefix("Prompt"); ok {
		o.PromptNode = id
	}
	return o
}
