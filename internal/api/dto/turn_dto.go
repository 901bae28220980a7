package dto

// TurnRequest is the inbound message for one conversational turn.
type TurnRequest struct {
	Utterance string `json:"utterance"`
}

// TurnResponse carries the engine's answer and its trace correlation id.
type TurnResponse struct {
	ResponseText string `json:"response_text"`
	TraceID      string `json:"trace_id"`
}
