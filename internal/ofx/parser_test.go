package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20260315120000[0:GMT]
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>341
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20260101120000[0:GMT]
<DTEND>20260131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260115120000[0:GMT]
<TRNAMT>-25.50
<FITID>JAN01
<NAME>PADARIA CENTRAL
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260120120000[0:GMT]
<TRNAMT>1500.00
<FITID>JAN02
<NAME>PIX RECEBIDO
</STMTTRN>
<STMTTRN>
<TRNTYPE>FEE
<DTPOSTED>20260125120000[0:GMT]
<TRNAMT>-9.90
<FITID>JAN03
<NAME>TARIFA PACOTE
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1464.60
<DTASOF>20260131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParser_ParseFile(t *testing.T) {
	parser := NewParser()

	transactions, err := parser.ParseFile(context.Background(), strings.NewReader(testStatement))
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	assert.Equal(t, "JAN01", transactions[0].ExternalID)
	assert.Equal(t, -25.50, transactions[0].Amount)
	assert.Equal(t, "PADARIA CENTRAL", transactions[0].Description)
	assert.Empty(t, transactions[0].AccountID, "account assignment is the importer's job")

	assert.Equal(t, "JAN02", transactions[1].ExternalID)
	assert.Equal(t, 1500.00, transactions[1].Amount)

	// Coarse category hints from the transaction type
	assert.Equal(t, "JAN03", transactions[2].ExternalID)
	assert.Equal(t, "Bank fees", transactions[2].ProviderCategory)
}

func TestParser_ParseFileLeadingWhitespace(t *testing.T) {
	parser := NewParser()

	transactions, err := parser.ParseFile(context.Background(), strings.NewReader("\n\n  "+testStatement))
	require.NoError(t, err)
	assert.Len(t, transactions, 3)
}

func TestParser_ParseFileRejectsGarbage(t *testing.T) {
	parser := NewParser()

	_, err := parser.ParseFile(context.Background(), strings.NewReader("this is not an ofx file"))
	assert.Error(t, err)
}

func TestParser_GetAccounts(t *testing.T) {
	parser := NewParser()

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(testStatement))
	require.NoError(t, err)
	assert.Equal(t, []string{"12345-6"}, accounts)
}

func TestExtractMerchantName(t *testing.T) {
	tests := []struct {
		name string
		txn  string
		memo string
		want string
	}{
		{
			name: "plain name",
			txn:  "PADARIA CENTRAL",
			want: "PADARIA CENTRAL",
		},
		{
			name: "strips pos prefix",
			txn:  "POS PURCHASE PADARIA CENTRAL",
			want: "PADARIA CENTRAL",
		},
		{
			name: "generic name falls back to memo",
			txn:  "DEBIT",
			memo: "COMPRA CARTAO PADARIA",
			want: "PADARIA",
		},
	}

	parser := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := ofxgo.Transaction{
				Name: ofxgo.String(tt.txn),
				Memo: ofxgo.String(tt.memo),
			}
			got := parser.extractMerchantName(txn)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractMerchantName_PrefersPayee(t *testing.T) {
	parser := NewParser()

	txn := ofxgo.Transaction{
		Name:  ofxgo.String("RAW NAME 123"),
		Payee: &ofxgo.Payee{Name: ofxgo.String("Clean Payee")},
	}
	assert.Equal(t, "Clean Payee", parser.extractMerchantName(txn))
}
