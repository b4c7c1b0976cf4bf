package dto

// PubSubPushRequest is the body Pub/Sub posts to a push subscription.
type PubSubPushRequest struct {
	Message      PubSubMessage `json:"message" validate:"required"`
	Subscription string        `json:"subscription"`
}

// PubSubMessage is the pushed message. Data is base64 encoded.
type PubSubMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId" validate:"required"`
	Attributes  map[string]string `json:"attributes"`
	PublishTime string            `json:"publishTime"`
}
