package models

import "time"

type MessageBuilder struct {
	msg *Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		msg: &Message{
			Attributes: make(map[string]string),
		},
	}
}

func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.msg.ID = id
	return b
}

func (b *MessageBuilder) WithData(data []byte) *MessageBuilder {
	b.msg.Data = data
	return b
}

func (b *MessageBuilder) WithAttribute(key, value string) *MessageBuilder {
	b.msg.Attributes[key] = value
	return b
}

func (b *MessageBuilder) WithAttributes(attrs map[string]string) *MessageBuilder {
	for k, v := range attrs {
		b.msg.Attributes[k] = v
	}
	return b
}

func (b *MessageBuilder) WithPublishTime(ts string) *MessageBuilder {
	b.msg.PublishTime = ts
	return b
}

func (b *MessageBuilder) Build() *Message {
	if b.msg.ReceivedAt.IsZero() {
		b.msg.ReceivedAt = time.Now().UTC()
	}
	return b.msg
}
