// Package deepseek serves DeepSeek's published CNY price list.
package deepseek

import (
	"github.com/everstacklabs/pricehub/internal/adapter/providers/static"
	"github.com/everstacklabs/pricehub/internal/model"
)

// Models is the built-in price list, in CNY per million tokens.
var Models = []static.Model{
	{
		Name:               "DeepSeek-V3.1",
		Brand:              "DeepSeek",
		ContextWindow:      160000,
		TrainingDataAmount: model.IntPtr(671),
		InputPrice:         4,
		OutputPrice:        12,
	},
	{
		Name:               "DeepSeek-V2.5",
		Brand:              "DeepSeek",
		ContextWindow:      128000,
		TrainingDataAmount: model.IntPtr(500),
		InputPrice:         3,
		OutputPrice:        10,
	},
}

// New returns the DeepSeek source.
func New() *static.Static {
	return static.New(static.Source{
		ID:          "deepseek",
		DisplayName: "DeepSeek",
		Website:     "https://platform.deepseek.com",
		Currency:    "CNY",
		Models:      Models,
	})
}
