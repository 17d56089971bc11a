package analysis

import (
	"strings"

	imagesvc "ingredient-analyzer/internal/core/image"
)

// Mode 輸入模式
type Mode string

const (
	ModeTextList         Mode = "text_list"
	ModeSingleIngredient Mode = "single_ingredient"
	ModeLabelImage       Mode = "label_image"
)

// ImageDecoder 驗證並解碼圖片負載
type ImageDecoder interface {
	Decode(payload string) (*imagesvc.Image, error)
}

// ClassificationRequest 標準化後的分類請求，建立後不可變更
type ClassificationRequest struct {
	mode  Mode
	text  string
	image *imagesvc.Image
}

// Mode 輸入模式
func (r *ClassificationRequest) Mode() Mode { return r.mode }

// Text 原始文字輸入（文字模式）
func (r *ClassificationRequest) Text() string { return r.text }

// ImageDataURI 內嵌用圖片（圖片模式）
func (r *ClassificationRequest) ImageDataURI() string {
	if r.image == nil {
		return ""
	}
	return r.image.DataURI()
}

// NewTextRequest 建立成分清單請求，原文逐字保留
func NewTextRequest(ingredients string) (*ClassificationRequest, error) {
	if strings.TrimSpace(ingredients) == "" {
		return nil, invalidInput("No ingredients provided", nil)
	}
	return &ClassificationRequest{mode: ModeTextList, text: ingredients}, nil
}

// NewIngredientRequest 建立單一成分請求
func NewIngredientRequest(name string) (*ClassificationRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("No ingredient name provided", nil)
	}
	return &ClassificationRequest{mode: ModeSingleIngredient, text: name}, nil
}

// NewImageRequest 建立標籤圖片請求
func NewImageRequest(payload string, decoder ImageDecoder) (*ClassificationRequest, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, invalidInput("No image provided", nil)
	}
	img, err := decoder.Decode(payload)
	if err != nil {
		return nil, invalidInput("Invalid image", err)
	}
	return &ClassificationRequest{mode: ModeLabelImage, image: img}, nil
}
