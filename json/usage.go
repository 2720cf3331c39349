package json

import "github.com/fwojciec/tether"

type usageDTO struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

func marshalUsage(u *tether.Usage) *usageDTO {
	if u == nil {
		return nil
	}
	return &usageDTO{
		InputTokens:              u.InputTokens,
		OutputTokens:             u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}

func unmarshalUsage(dto *usageDTO) *tether.Usage {
	if dto == nil {
		return nil
	}
	return &tether.Usage{
		InputTokens:              dto.InputTokens,
		OutputTokens:             dto.OutputTokens,
		CacheCreationInputTokens: dto.CacheCreationInputTokens,
		CacheReadInputTokens:     dto.CacheReadInputTokens,
	}
}
