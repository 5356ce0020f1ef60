package extractor_test

import (
	"testing"

	"github.com/illmade-knight/go-telex/pkg/extractor"
	"github.com/illmade-knight/go-telex/pkg/telex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intValue(t *testing.T, p *int) int {
	t.Helper()
	require.NotNil(t, p)
	return *p
}

func TestExtractLDM(t *testing.T) {
	t.Run("load message", func(t *testing.T) {
		// Arrange
		body := `LDM
AT201/12.CNRGT.738.C12Y162.2/5
-CDG.110/8/2.T1250.1/600.3/650.PAX/12/108.PAD/0/0
SI B/450 C/200 M/50 AVI DGR`

		// Act
		rec := extractor.ExtractLDM(body)

		// Assert
		require.NotNil(t, rec.LDM)
		assert.Equal(t, telex.TypeLDM, rec.Type)
		assert.Equal(t, "AT201", rec.FlightDesignator)
		assert.Equal(t, "12", rec.LDM.FlightDay)
		assert.Equal(t, "CNRGT", rec.LDM.Registration)
		assert.Equal(t, "738", rec.LDM.AircraftType)
		assert.Equal(t, "C12Y162", rec.LDM.Configuration)
		assert.Equal(t, "2/5", rec.LDM.CrewComposition)
		assert.Equal(t, []string{"CDG"}, rec.LDM.RouteAirports)
		assert.Equal(t, "CDG", rec.ArrivalAirport)
		assert.Equal(t, 110, intValue(t, rec.LDM.Adults))
		assert.Equal(t, 8, intValue(t, rec.LDM.Children))
		assert.Equal(t, 2, intValue(t, rec.LDM.Infants))
		assert.Equal(t, 120, intValue(t, rec.LDM.Passengers))
		assert.Equal(t, 1250, intValue(t, rec.LDM.TotalWeight))
		assert.Equal(t, []string{"1/600", "3/650"}, rec.LDM.Compartments)
		assert.Equal(t, 450, intValue(t, rec.LDM.BaggageWeight))
		assert.Equal(t, 200, intValue(t, rec.LDM.FreightWeight))
		assert.Equal(t, 50, intValue(t, rec.LDM.MailWeight))
		assert.Equal(t, []string{"AVI", "DGR"}, rec.LDM.SpecialHandling)
		assert.Equal(t, "738", rec.AircraftType())
	})

	t.Run("unparsable count is left unset", func(t *testing.T) {
		// Act
		rec := extractor.ExtractLDM("AT201/12\n-CDG.99999999999999999999/0/0.T12")

		// Assert
		assert.Nil(t, rec.LDM.Adults)
		assert.Equal(t, 0, intValue(t, rec.LDM.Children))
		assert.Equal(t, 12, intValue(t, rec.LDM.TotalWeight))
	})

	t.Run("compartments only read from destination lines", func(t *testing.T) {
		// Act
		rec := extractor.ExtractLDM("AT201/12.CNRGT.738.C12Y162.2/5")

		// Assert
		assert.Empty(t, rec.LDM.Compartments)
		assert.Equal(t, "2/5", rec.LDM.CrewComposition)
	})

	t.Run("multi stop route", func(t *testing.T) {
		// Act
		rec := extractor.ExtractLDM("AT201/12\n-ORY.50/0/0\n-CDG.60/1/0")

		// Assert
		assert.Equal(t, []string{"ORY", "CDG"}, rec.LDM.RouteAirports)
		assert.Equal(t, "ORY", rec.ArrivalAirport)
		assert.Equal(t, 50, intValue(t, rec.LDM.Adults))
	})
}
