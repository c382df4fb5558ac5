package main

import (
	"context"
	"testing"

	"github.com/caixahub/caixahub/internal/ofx"
	"github.com/stretchr/testify/assert"
)

// Minimal OFX statements for two different bank accounts.
const testStatementAccountA = `OFXHEADER:100
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
<FITID>A-JAN01
<NAME>PADARIA CENTRAL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20260131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const testStatementAccountB = `OFXHEADER:100
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
<ACCTID>98765-4
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20260201120000[0:GMT]
<DTEND>20260228120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260215120000[0:GMT]
<TRNAMT>1500.00
<FITID>B-FEB01
<NAME>PIX RECEBIDO
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1500.00
<DTASOF>20260228120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestStatementAccountIDs(t *testing.T) {
	parser := ofx.NewParser()
	ctx := context.Background()

	tests := []struct {
		name     string
		contents [][]byte
		want     []string
	}{
		{
			name:     "single account",
			contents: [][]byte{[]byte(testStatementAccountA)},
			want:     []string{"12345-6"},
		},
		{
			name: "same account twice",
			contents: [][]byte{
				[]byte(testStatementAccountA),
				[]byte(testStatementAccountA),
			},
			want: []string{"12345-6"},
		},
		{
			name: "statements span two accounts",
			contents: [][]byte{
				[]byte(testStatementAccountA),
				[]byte(testStatementAccountB),
			},
			want: []string{"12345-6", "98765-4"},
		},
		{
			name: "unparseable file skipped",
			contents: [][]byte{
				[]byte("not an ofx document"),
				[]byte(testStatementAccountB),
			},
			want: []string{"98765-4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statementAccountIDs(ctx, parser, tt.contents)
			assert.Equal(t, tt.want, got)
		})
	}
}
