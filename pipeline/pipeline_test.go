//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvocationError_Unwrap(t *testing.T) {
	cause := errors.New("search backend down")
	err := &InvocationError{Stage: "retriever", TurnIndex: 2, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "retriever")
	assert.Contains(t, err.Error(), "turn 2")
}
