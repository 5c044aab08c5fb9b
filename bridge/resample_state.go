package bridge

import "github.com/pjmedia/goconf/bridge/resample"

// resamplerState holds the per-direction, per-port resample.Converter (spec
// §4.1 "(ii) convert between the port's clock rate and the bridge's clock
// rate"). The leftover-sample assemblers that absorb a converted frame not
// lining up with the consumer's samples_per_frame live on portSlot
// (rxAssembler/txAssembler).
type resamplerState struct {
	conv *resample.Converter
}

func newResamplerState(portRate, bridgeRate, channels int, filter resample.Filter) (resamplerState, error) {
	conv, err := resample.NewConverter(portRate, bridgeRate, channels, filter)
	if err != nil {
		return resamplerState{}, err
	}
	return resamplerState{conv: conv}, nil
}

func filterFromOptions(opt Option) resample.Filter {
	switch {
	case opt.Has(UseLinear):
		return resample.FilterLinear
	case opt.Has(SmallFilter):
		return resample.FilterSincSmall
	default:
		return resample.FilterSinc
	}
}
