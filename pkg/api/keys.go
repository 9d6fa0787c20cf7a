package api

// Reserved context keys. Pattern steps use these names to hand data to each
// other and other step families read and write them too, so they must not
// change.
const (
	KeyCurrentSplitItem        = "current-split-item"
	KeySplitResults            = "split-results"
	KeyAggregatorResult        = "aggregator-result"
	KeyComposedProcessorResult = "composed-processor-result"
	KeyResequencerResult       = "resequencer-result"
	KeyScatterGatherResults    = "scatter-gather-results"
	KeyProcessManagerState     = "process-manager-state"
	KeyRoutingSlip             = "routing-slip"
	KeyClaimTicket             = "claim-ticket"
	KeyClaimPayload            = "claim-payload"
	KeyProcessedItem           = "processed-item"

	handlerResultPrefix = "scatter-gather-result:"
)

// HandlerResultKey returns the key under which a Scatter-Gather handler
// named name is expected to write its result.
func HandlerResultKey(name string) string {
	return handlerResultPrefix + name
}
