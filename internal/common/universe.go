package common

// defaultUniverse returns the built-in TSX large-cap tracking list.
// Tickers use Yahoo-style ".TO" suffixes so they can be passed to the
// market data client unchanged.
func defaultUniverse() []InstrumentConfig {
	return []InstrumentConfig{
		{Ticker: "RY.TO", Name: "Royal Bank of Canada", Sector: "Finance"},
		{Ticker: "TD.TO", Name: "Toronto-Dominion Bank", Sector: "Finance"},
		{Ticker: "BNS.TO", Name: "Bank of Nova Scotia", Sector: "Finance"},
		{Ticker: "BMO.TO", Name: "Bank of Montreal", Sector: "Finance"},
		{Ticker: "CM.TO", Name: "Canadian Imperial Bank of Commerce", Sector: "Finance"},
		{Ticker: "ENB.TO", Name: "Enbridge Inc", Sector: "Energy"},
		{Ticker: "CNQ.TO", Name: "Canadian Natural Resources", Sector: "Energy"},
		{Ticker: "SU.TO", Name: "Suncor Energy", Sector: "Energy"},
		{Ticker: "TRP.TO", Name: "TC Energy", Sector: "Energy"},
		{Ticker: "CP.TO", Name: "Canadian Pacific Kansas City", Sector: "Technology"},
		{Ticker: "CNR.TO", Name: "Canadian National Railway", Sector: "Technology"},
		{Ticker: "MFC.TO", Name: "Manulife Financial", Sector: "Finance"},
		{Ticker: "SLF.TO", Name: "Sun Life Financial", Sector: "Finance"},
		{Ticker: "ABX.TO", Name: "Barrick Gold", Sector: "Mining"},
		{Ticker: "NTR.TO", Name: "Nutrien Ltd", Sector: "Mining"},
		{Ticker: "FNV.TO", Name: "Franco-Nevada Corp", Sector: "Mining"},
		{Ticker: "WCN.TO", Name: "Waste Connections", Sector: "Healthcare"},
		{Ticker: "CSU.TO", Name: "Constellation Software", Sector: "Technology"},
		{Ticker: "ATD.TO", Name: "Alimentation Couche-Tard", Sector: "Healthcare"},
		{Ticker: "QSR.TO", Name: "Restaurant Brands International", Sector: "Healthcare"},
		{Ticker: "SHOP.TO", Name: "Shopify Inc", Sector: "Technology"},
		{Ticker: "BCE.TO", Name: "BCE Inc", Sector: "Technology"},
		{Ticker: "T.TO", Name: "Telus Corp", Sector: "Technology"},
		{Ticker: "GIB-A.TO", Name: "CGI Inc", Sector: "Technology"},
		{Ticker: "DOL.TO", Name: "Dollarama Inc", Sector: "Healthcare"},
		{Ticker: "L.TO", Name: "Loblaw Companies", Sector: "Healthcare"},
		{Ticker: "MG.TO", Name: "Magna International", Sector: "Healthcare"},
		{Ticker: "IMO.TO", Name: "Imperial Oil", Sector: "Energy"},
		{Ticker: "CVE.TO", Name: "Cenovus Energy", Sector: "Energy"},
		{Ticker: "TOU.TO", Name: "Tourmaline Oil", Sector: "Energy"},
		{Ticker: "FM.TO", Name: "First Quantum Minerals", Sector: "Mining"},
		{Ticker: "TECK-B.TO", Name: "Teck Resources", Sector: "Mining"},
		{Ticker: "AGI.TO", Name: "Alamos Gold", Sector: "Mining"},
		{Ticker: "K.TO", Name: "Kinross Gold", Sector: "Mining"},
		{Ticker: "AEM.TO", Name: "Agnico Eagle Mines", Sector: "Mining"},
		{Ticker: "WPM.TO", Name: "Wheaton Precious Metals", Sector: "Mining"},
		{Ticker: "IFC.TO", Name: "Intact Financial", Sector: "Finance"},
		{Ticker: "GWO.TO", Name: "Great-West Lifeco", Sector: "Finance"},
		{Ticker: "POW.TO", Name: "Power Corporation", Sector: "Finance"},
		{Ticker: "FFH.TO", Name: "Fairfax Financial", Sector: "Finance"},
		{Ticker: "BAM.TO", Name: "Brookfield Asset Management", Sector: "Finance"},
		{Ticker: "BN.TO", Name: "Brookfield Corporation", Sector: "Finance"},
		{Ticker: "RCI-B.TO", Name: "Rogers Communications", Sector: "Technology"},
		{Ticker: "SAP.TO", Name: "Saputo Inc", Sector: "Healthcare"},
		{Ticker: "CCL-B.TO", Name: "CCL Industries", Sector: "Healthcare"},
		{Ticker: "WFG.TO", Name: "West Fraser Timber", Sector: "Mining"},
		{Ticker: "AQN.TO", Name: "Algonquin Power", Sector: "Energy"},
		{Ticker: "H.TO", Name: "Hydro One", Sector: "Energy"},
		{Ticker: "FTS.TO", Name: "Fortis Inc", Sector: "Energy"},
		{Ticker: "EMA.TO", Name: "Emera Inc", Sector: "Energy"},
	}
}

// Sectors is the classification taxonomy offered to the analysis
// stages. Signals outside these buckets are still stored verbatim.
var Sectors = []string{"Energy", "Mining", "Finance", "Technology", "Healthcare"}

// InsightTypes enumerates the recognized signal categories.
var InsightTypes = []string{"Event-driven", "Sentiment", "Policy", "Earnings"}

// UniverseNames returns ticker -> company name for the configured list.
func (c *Config) UniverseNames() map[string]string {
	names := make(map[string]string, len(c.Universe))
	for _, inst := range c.Universe {
		names[inst.Ticker] = inst.Name
	}
	return names
}

// UniverseTickers returns the configured tickers in declaration order.
func (c *Config) UniverseTickers() []string {
	tickers := make([]string, 0, len(c.Universe))
	for _, inst := range c.Universe {
		tickers = append(tickers, inst.Ticker)
	}
	return tickers
}

// SectorFor returns the configured sector for a ticker, or "" when the
// ticker is outside the universe.
func (c *Config) SectorFor(ticker string) string {
	for _, inst := range c.Universe {
		if inst.Ticker == ticker {
			return inst.Sector
		}
	}
	return ""
}
