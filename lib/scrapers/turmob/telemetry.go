package turmob

import (
	"turmob-efatura/lib/restyutil"
	"turmob-efatura/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("turmob.lib.scrapers.turmob")

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes clients created afterwards dump their
// full HTTP exchanges to out when debug logging is enabled.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

func instrumentExchangeDumps(client *resty.Client) {
	restyutil.InstrumentClient(client, restyInstrumentOutput)
}
