package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/analytiqhub/docrouter/pkg/models"
)

func TestDocumentStateMachineForwardOnly(t *testing.T) {
	cases := []struct {
		from  models.DocumentState
		to    models.DocumentState
		legal bool
	}{
		{models.StateUploaded, models.StateOCRProcessing, true},
		{models.StateUploaded, models.StateOCRCompleted, false},
		{models.StateOCRProcessing, models.StateOCRCompleted, true},
		{models.StateOCRProcessing, models.StateOCRFailed, true},
		{models.StateOCRCompleted, models.StateLLMProcessing, true},
		{models.StateOCRCompleted, models.StateOCRProcessing, false},
		{models.StateOCRFailed, models.StateOCRProcessing, true},
		{models.StateLLMProcessing, models.StateLLMCompleted, true},
		{models.StateLLMProcessing, models.StateLLMFailed, true},
		{models.StateLLMFailed, models.StateLLMProcessing, true},
		{models.StateLLMCompleted, models.StateLLMProcessing, true},
		{models.StateLLMCompleted, models.StateOCRProcessing, false},
	}

	for _, c := range cases {
		got := c.from.CanTransition(c.to)
		assert.Equal(t, c.legal, got, "%s -> %s", c.from, c.to)
	}
}
