package automation

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taxReadyPage(resultText string) *fakePage {
	page := newFakePage()
	page.dom["#inputCertify"] = true
	page.dom[".certify-result"] = true
	page.texts[".certify-result"] = resultText
	return page
}

func TestCertificationAccepted(t *testing.T) {
	assert.True(t, certificationAccepted("认证成功"))
	assert.True(t, certificationAccepted("发票信息一致"))
	assert.False(t, certificationAccepted("认证失败，税号不匹配"))
	assert.False(t, certificationAccepted(""))
}

func TestTaxWorkflow_Certified(t *testing.T) {
	w := NewTaxWorkflow(NewEvidence(t.TempDir()))
	page := taxReadyPage("认证成功")
	page.dom[".save-success"] = true

	result := w.Fill(page, testInvoice())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "税务系统认证成功", result.Message)
	assert.True(t, strings.HasPrefix(filepath.Base(result.Screenshot), "tax_"))
	assert.Equal(t, 1, page.clickCount("#certifyBtn"))
	assert.Equal(t, 1, page.clickCount("#saveRecord"))
}

func TestTaxWorkflow_RemoteRejection(t *testing.T) {
	// The platform responded but refused the data: this is a failure with
	// evidence, reported without any error being raised locally.
	w := NewTaxWorkflow(NewEvidence(t.TempDir()))
	page := taxReadyPage("认证失败，税号不匹配")

	result := w.Fill(page, testInvoice())

	require.False(t, result.Success)
	assert.Contains(t, result.Message, "税号不匹配")
	assert.NotEmpty(t, result.Screenshot)
	assert.Empty(t, result.Detail)
	assert.Equal(t, 0, page.clickCount("#saveRecord"), "a rejected certification must not be recorded")
}

func TestTaxWorkflow_ResultPanelNeverAppears(t *testing.T) {
	w := NewTaxWorkflow(NewEvidence(t.TempDir()))
	page := newFakePage()
	page.dom["#inputCertify"] = true

	result := w.Fill(page, testInvoice())

	require.False(t, result.Success)
	assert.Contains(t, result.Message, "税务系统操作失败")
	assert.True(t, strings.HasPrefix(filepath.Base(result.Screenshot), "tax_error_"))
}
