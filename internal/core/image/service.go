package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// 圖片驗證錯誤
var (
	ErrEmptyImage        = errors.New("image data is empty")
	ErrInvalidEncoding   = errors.New("invalid base64 image data")
	ErrImageTooLarge     = errors.New("image size exceeds limit")
	ErrUndecodableImage  = errors.New("failed to decode image")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Image 驗證後的圖片
type Image struct {
	Data   []byte
	Format string // jpeg | png
	Width  int
	Height int
}

// MIMEType 回傳對應的 MIME 類型
func (i *Image) MIMEType() string {
	return "image/" + i.Format
}

// DataURI 編碼為 data URI，供分類器內嵌
func (i *Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType(), base64.StdEncoding.EncodeToString(i.Data))
}

// defaultMaxPixels 解碼前允許的最大像素數
const defaultMaxPixels = 40_000_000

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	maxDimension int
	maxPixels    int
}

// NewService 創建新的圖片處理服務；maxDimension 為 0 時不縮圖
func NewService(maxSizeBytes int64, maxDimension int) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		maxDimension: maxDimension,
		maxPixels:    defaultMaxPixels,
	}
}

// Decode 解析 base64 或 data URI 圖片，確認可解碼；jpeg/png 保留原始位元組，其他格式轉為 JPEG
func (s *Service) Decode(payload string) (*Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	// 處理 data URI 前綴
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx == -1 || !strings.Contains(payload[:idx], ";base64") {
			return nil, ErrInvalidEncoding
		}
		payload = payload[idx+1:]
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	// 檢查文件大小
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(data), s.maxSizeBytes)
	}

	// 先讀標頭，避免高壓縮比的圖片解碼後佔用過多記憶體
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if pixels := cfg.Width * cfg.Height; pixels > s.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels (max %d)", ErrImageTooLarge, cfg.Width, cfg.Height, s.maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	bounds := img.Bounds()
	result := &Image{
		Data:   data,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	reencode := format != "jpeg" && format != "png"
	if scaled, ok := s.downscale(img); ok {
		img = scaled
		result.Width, result.Height = img.Bounds().Dx(), img.Bounds().Dy()
		reencode = true
	}

	if reencode {
		// 將圖片轉換為 JPEG 格式
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
		}
		result.Data = buf.Bytes()
		result.Format = "jpeg"
	}

	return result, nil
}

// downscale 長邊超過上限時等比例縮小
func (s *Service) downscale(img image.Image) (image.Image, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if s.maxDimension <= 0 || longest <= s.maxDimension {
		return img, false
	}

	nw := w * s.maxDimension / longest
	nh := h * s.maxDimension / longest
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst, true
}

// decodeBase64 接受標準或 URL-safe 編碼，允許省略 padding 與換行
func decodeBase64(payload string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, payload)

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		if data, err := enc.DecodeString(cleaned); err == nil {
			return data, nil
		}
	}
	return nil, ErrInvalidEncoding
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
