package replui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalExpressionFoldsArithmetic(t *testing.T) {
	s := newSession()
	res := s.evalLine("3 + 4 * 2")
	require.False(t, res.isError)
	require.Equal(t, "11", res.output)
}

func TestEvalExpressionPersistsConstantsAcrossCommands(t *testing.T) {
	s := newSession()
	res := s.evalLine("FOO = 10")
	require.False(t, res.isError)

	res2 := s.evalLine("FOO + 1")
	require.False(t, res2.isError)
	require.Equal(t, "11", res2.output)
}

func TestEvalExpressionReportsParseError(t *testing.T) {
	s := newSession()
	res := s.evalLine("3 +")
	require.True(t, res.isError)
	require.Equal(t, ParseError, res.errorType)
}

func TestEvalFunctionCompilesAndRendersIR(t *testing.T) {
	s := newSession()
	res := s.evalLine("PUB start\nDO\n  return 42\nEND\n")
	require.False(t, res.isError)
	require.True(t, strings.Contains(res.output, "start:"))
	require.True(t, strings.Contains(res.output, "RET"))
}

func TestEvalFunctionRejectsNonFunctionInput(t *testing.T) {
	s := newSession()
	res := s.evalLine("PUB\nDO\nEND\n")
	require.True(t, res.isError)
}

func TestIsBalancedDetectsUnmatchedBrackets(t *testing.T) {
	require.True(t, isBalanced("(1 + 2)"))
	require.False(t, isBalanced("(1 + 2"))
	require.False(t, isBalanced("1 + 2)"))
}
