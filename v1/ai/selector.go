package ai

import (
	"fmt"

	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// ServiceSelector picks the chat service a prompt function runs on.
type ServiceSelector interface {
	SelectChatCompletion(k *kernel.Kernel, settings *kernel.PromptExecutionSettings) (ChatCompletion, error)
}

// DefaultServiceSelector selects by ServiceID, then by ModelID, then falls
// back to the "default" or first registered chat service.
type DefaultServiceSelector struct{}

func (DefaultServiceSelector) SelectChatCompletion(k *kernel.Kernel, settings *kernel.PromptExecutionSettings) (ChatCompletion, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: no kernel", ErrNoChatService)
	}
	if settings != nil && settings.ServiceID != "" {
		chat, err := kernel.GetServiceAs[ChatCompletion](k, settings.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoChatService, err)
		}
		return chat, nil
	}
	if settings != nil && settings.ModelID != "" {
		for _, chat := range kernel.ServicesAs[ChatCompletion](k) {
			if chat.ModelID() == settings.ModelID {
				return chat, nil
			}
		}
	}
	chat, err := kernel.GetServiceAs[ChatCompletion](k, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoChatService, err)
	}
	return chat, nil
}
