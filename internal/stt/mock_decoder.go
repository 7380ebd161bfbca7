package stt

import "context"

type mockDecoderFactory struct {
	text string
}

// NewMockDecoderFactory emits a fixed transcript once the stream ends.
func NewMockDecoderFactory() DecoderFactory {
	return &mockDecoderFactory{text: "This is a placeholder transcription of your voice message"}
}

func (f *mockDecoderFactory) NewDecoder(context.Context, int) (Decoder, error) {
	return &mockDecoder{text: f.text}, nil
}

type mockDecoder struct {
	text string
	fed  bool
}

func (d *mockDecoder) Feed([]byte) (string, bool, error) {
	d.fed = true
	return "", false, nil
}

func (d *mockDecoder) Finish() (string, error) {
	if !d.fed {
		return "", nil
	}
	return d.text, nil
}

func (d *mockDecoder) Close() error { return nil }
