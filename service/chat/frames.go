package chat

import (
	"fmt"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/decode"
)

// ParseReadReceipt accepts {"messageIds": [...]} or a bare id array.
func ParseReadReceipt(f *chatmodel.Frame) ([]string, error) {
	data, err := f.DecodeData()
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", f.Event, err)
	}
	switch v := data.(type) {
	case []any:
		return decode.StringSlice(v)
	case map[string]any:
		rr, err := decode.Decode[chatmodel.ReadReceipt](v)
		if err != nil {
			return nil, err
		}
		return rr.MessageIDs, nil
	default:
		return nil, fmt.Errorf("%s: unexpected data %T", f.Event, data)
	}
}
